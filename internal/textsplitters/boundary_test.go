package textsplitters

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParagraphsOf_SplitsOnBlankLines(t *testing.T) {
	paras := ParagraphsOf("first paragraph\nstill first\n\nsecond paragraph\n\n\nthird paragraph")
	require.Equal(t, []string{"first paragraph\nstill first", "second paragraph", "third paragraph"}, paras)
}

func TestParagraphsOf_TrimsAndDropsEmpty(t *testing.T) {
	paras := ParagraphsOf("\n\n  only paragraph  \n\n")
	require.Equal(t, []string{"only paragraph"}, paras)
}

func TestParagraphsOf_EmptyInput(t *testing.T) {
	require.Empty(t, ParagraphsOf(""))
}
