package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCaptureDate verifies the year and month are read from the archive
// timestamp of the URL actually served.
func TestCaptureDate(t *testing.T) {
	t.Parallel()

	year, month, err := CaptureDate("https://web.archive.org/web/20190602000119/https://www.uol.com.br/")
	require.NoError(t, err)
	require.Equal(t, 2019, year)
	require.Equal(t, 6, month)
}

// TestCaptureDateRedirected covers a snapshot that redirected to a capture in
// a different month than requested.
func TestCaptureDateRedirected(t *testing.T) {
	t.Parallel()

	year, month, err := CaptureDate("http://web.archive.org/web/20210101003015/https://www.uol.com.br/")
	require.NoError(t, err)
	require.Equal(t, 2021, year)
	require.Equal(t, 1, month)
}

func TestCaptureDateErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no marker":       "https://www.uol.com.br/",
		"short timestamp": "https://web.archive.org/web/2019/https://www.uol.com.br/",
		"non-digits":      "https://web.archive.org/web/im_https://www.uol.com.br/",
		"bad month":       "https://web.archive.org/web/20191302000119/https://www.uol.com.br/",
	}
	for name, rawURL := range cases {
		rawURL := rawURL
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := CaptureDate(rawURL)
			require.Error(t, err)
		})
	}
}

// TestReconstruct checks that the original article URL is recovered from an
// archive-wrapped href by taking everything from the last scheme occurrence.
func TestReconstruct(t *testing.T) {
	t.Parallel()

	link, ok := Reconstruct("https://web.archive.org/web/20190602000119/https://noticias.uol.com.br/politica/2019/06/01/materia.htm")
	require.True(t, ok)
	require.Equal(t, "https://noticias.uol.com.br/politica/2019/06/01/materia.htm", link)
}

func TestReconstructPlainLink(t *testing.T) {
	t.Parallel()

	link, ok := Reconstruct("http://noticias.uol.com.br/2015/03/10/materia.htm")
	require.True(t, ok)
	require.Equal(t, "http://noticias.uol.com.br/2015/03/10/materia.htm", link)
}

func TestReconstructNoScheme(t *testing.T) {
	t.Parallel()

	_, ok := Reconstruct("/relative/2019/path.htm")
	require.False(t, ok)
}
