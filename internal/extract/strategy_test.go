package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const modernPage = `<html><body>
<div class="header">UOL</div>
<div class="text">  Primeira frase.
Segunda   frase. </div>
</body></html>`

const legacyPage = `<html><body>
<div id="texto">Corpo da  matéria antiga.</div>
</body></html>`

const emptyPage = `<html><body><div class="sidebar">nada aqui</div></body></html>`

// TestChainPrimarySelector hits the first selector and stops there.
func TestChainPrimarySelector(t *testing.T) {
	t.Parallel()

	chain := DefaultChain()
	text, strategy, ok := chain.Extract([]byte(modernPage), nil)
	require.True(t, ok)
	require.Equal(t, "div.text", strategy)
	require.Contains(t, text, "Primeira frase.")
}

// TestChainFallbackSelector falls through to the legacy selector when the
// primary has no match.
func TestChainFallbackSelector(t *testing.T) {
	t.Parallel()

	chain := DefaultChain()
	text, strategy, ok := chain.Extract([]byte(legacyPage), nil)
	require.True(t, ok)
	require.Equal(t, "div#texto", strategy)
	require.Contains(t, text, "matéria antiga")
}

// TestChainNoMatch reports failure when no strategy finds a body.
func TestChainNoMatch(t *testing.T) {
	t.Parallel()

	_, _, ok := DefaultChain().Extract([]byte(emptyPage), nil)
	require.False(t, ok)
}

// TestChainEmptyMatchIsMiss treats a matching but blank element as a miss so
// the next strategy gets its turn.
func TestChainEmptyMatchIsMiss(t *testing.T) {
	t.Parallel()

	page := `<html><body><div class="text">   </div><div id="texto">conteúdo</div></body></html>`
	text, strategy, ok := DefaultChain().Extract([]byte(page), nil)
	require.True(t, ok)
	require.Equal(t, "div#texto", strategy)
	require.Equal(t, "conteúdo", text)
}

// TestReadabilityFallback appends the readability strategy at the end of the
// chain when enabled.
func TestReadabilityFallback(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Notícia</title></head><body><article>
<p>Um parágrafo longo o suficiente para o extrator de conteúdo considerar
como corpo principal da página, repetido para ganhar densidade textual.</p>
<p>Um parágrafo longo o suficiente para o extrator de conteúdo considerar
como corpo principal da página, repetido para ganhar densidade textual.</p>
<p>Um parágrafo longo o suficiente para o extrator de conteúdo considerar
como corpo principal da página, repetido para ganhar densidade textual.</p>
</article></body></html>`

	chain := NewChain([]string{"div.text"}, true)
	require.Len(t, chain, 2)

	text, strategy, ok := chain.Extract([]byte(page), nil)
	require.True(t, ok)
	require.Equal(t, "readability", strategy)
	require.Contains(t, text, "corpo principal")
}

// TestNormalize pins the whitespace collapse, trim, and lower-casing.
func TestNormalize(t *testing.T) {
	t.Parallel()

	in := "  Primeira Frase.\n\tSegunda   FRASE. \n"
	require.Equal(t, "primeira frase. segunda frase.", Normalize(in))
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Normalize("   \n\t "))
}
