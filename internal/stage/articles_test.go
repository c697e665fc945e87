package stage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joaoloss/uol-harvest/internal/extract"
	"github.com/joaoloss/uol-harvest/internal/fetch"
	"github.com/joaoloss/uol-harvest/internal/partition"
)

func pageResponse(url, html string) fetch.Response {
	return fetch.Response{
		StatusCode: http.StatusOK,
		FinalURL:   url,
		Body:       []byte(html),
	}
}

// TestArticleStageExtractsAndNormalizes fetches one modern and one legacy
// page and checks both bodies land normalized and blank-line separated in
// the shared output partition.
func TestArticleStageExtractsAndNormalizes(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "2015", "3-2015.txt")
	modern := "http://noticias.uol.com.br/2015/03/10/moderna.htm"
	legacy := "http://noticias.uol.com.br/2015/03/11/antiga.htm"
	fetcher := &mapFetcher{pages: map[string]fetch.Response{
		modern: pageResponse(modern, `<html><body><div class="text">  Primeira   NOTÍCIA. </div></body></html>`),
		legacy: pageResponse(legacy, `<html><body><div id="texto">Segunda notícia.</div></body></html>`),
	}}

	articles := NewArticleStage(ArticleConfig{
		Workers: 1,
		Retry:   fetch.RetryPolicy{Attempts: 1},
	}, fetcher, partition.NewWriter(nil), extract.DefaultChain(), nil)

	summary, err := articles.Run(context.Background(), []Task{
		{URL: modern, OutPath: out},
		{URL: legacy, OutPath: out},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Total)
	require.EqualValues(t, 0, summary.Failed)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "primeira notícia.\n\nsegunda notícia.\n\n", string(data))
}

// TestArticleStageCountsExtractionFailures treats a page with no usable body
// as a failed unit without stopping the run.
func TestArticleStageCountsExtractionFailures(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "2019", "6-2019.txt")
	good := "http://noticias.uol.com.br/2019/06/01/boa.htm"
	bare := "http://noticias.uol.com.br/2019/06/02/vazia.htm"
	fetcher := &mapFetcher{pages: map[string]fetch.Response{
		good: pageResponse(good, `<html><body><div class="text">conteúdo</div></body></html>`),
		bare: pageResponse(bare, `<html><body><div class="sidebar">nada</div></body></html>`),
	}}

	articles := NewArticleStage(ArticleConfig{
		Workers: 2,
		Retry:   fetch.RetryPolicy{Attempts: 1},
	}, fetcher, partition.NewWriter(nil), extract.DefaultChain(), nil)

	summary, err := articles.Run(context.Background(), []Task{
		{URL: good, OutPath: out},
		{URL: bare, OutPath: out},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Total)
	require.EqualValues(t, 1, summary.Failed)
	require.InDelta(t, 50.0, summary.SuccessRate(), 0.01)
}

// TestArticleStageRunYear loads the link partitions under a year folder and
// mirrors them under the news root.
func TestArticleStageRunYear(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	linksRoot := filepath.Join(base, "uol_links")
	newsRoot := filepath.Join(base, "uol_news")

	article := "http://noticias.uol.com.br/2015/03/10/materia.htm"
	require.NoError(t, os.MkdirAll(filepath.Join(linksRoot, "2015"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(linksRoot, "2015", "3-2015.txt"),
		[]byte(article+"\n\n"),
		0o640,
	))

	fetcher := &mapFetcher{pages: map[string]fetch.Response{
		article: pageResponse(article, `<html><body><div class="text">Matéria completa.</div></body></html>`),
	}}

	articles := NewArticleStage(ArticleConfig{
		Workers:   2,
		LinksRoot: linksRoot,
		NewsRoot:  newsRoot,
		Retry:     fetch.RetryPolicy{Attempts: 1},
	}, fetcher, partition.NewWriter(nil), extract.DefaultChain(), nil)

	summary, err := articles.RunYear(context.Background(), "2015")
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Total)
	require.EqualValues(t, 0, summary.Failed)

	data, err := os.ReadFile(filepath.Join(newsRoot, "2015", "3-2015.txt"))
	require.NoError(t, err)
	require.Equal(t, "matéria completa.\n\n", string(data))
}

// TestArticleStageRunYearMissingFolder surfaces a readable error for an
// unknown year folder.
func TestArticleStageRunYearMissingFolder(t *testing.T) {
	t.Parallel()

	articles := NewArticleStage(ArticleConfig{
		Workers:   1,
		LinksRoot: t.TempDir(),
		NewsRoot:  t.TempDir(),
	}, &mapFetcher{}, partition.NewWriter(nil), nil, nil)

	_, err := articles.RunYear(context.Background(), "1999")
	require.Error(t, err)
	require.Contains(t, err.Error(), "1999")
}

// TestSummarySuccessRate pins the success-rate arithmetic used in the run
// summary line.
func TestSummarySuccessRate(t *testing.T) {
	t.Parallel()

	s := Summary{Total: 10, Failed: 3}
	require.EqualValues(t, 7, s.Succeeded())
	require.InDelta(t, 70.0, s.SuccessRate(), 0.01)
	require.Equal(t, "Processed 10 links - 7/10 succeeded (70.0%)",
		fmt.Sprintf("Processed %d links - %d/%d succeeded (%.1f%%)", s.Total, s.Succeeded(), s.Total, s.SuccessRate()))

	require.Zero(t, Summary{}.SuccessRate())
}

// TestCounterConcurrent bumps the accountant from several goroutines.
func TestCounterConcurrent(t *testing.T) {
	t.Parallel()

	var c Counter
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func() {
			for i := 0; i < 100; i++ {
				c.Unit()
				if i%2 == 0 {
					c.Fail()
				}
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	require.EqualValues(t, 400, c.Total())
	require.EqualValues(t, 200, c.Failed())
}
