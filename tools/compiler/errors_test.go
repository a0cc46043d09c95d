package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `\begin{tikzpicture}
\node[draw] (a) at (0,0) {A};
\node[draw] (b) at (2,0) {B};
\draw[->] (a) -- (b);
\node[draw] (c) at (4,0) {C};
\draw[->] (b) -- (c);
\end{tikzpicture}`

func TestParseErrorsWithLineMarker(t *testing.T) {
	log := `This is pdfTeX, Version 3.141592653
! Undefined control sequence.
<recently read> \nodee
l.4 \draw[->] (a) -- (b);
?`

	errs := ParseErrors(log, sampleSource)
	require.Len(t, errs, 1)

	assert.Equal(t, "Undefined control sequence.", errs[0].Message)
	require.NotNil(t, errs[0].Line)
	assert.Equal(t, 4, *errs[0].Line)

	assert.Contains(t, errs[0].Context, `\node[draw] (a) at (0,0) {A};`)
	assert.Contains(t, errs[0].Context, `\draw[->] (a) -- (b);`)
	assert.Contains(t, errs[0].Context, `\node[draw] (c) at (4,0) {C};`)
}

func TestParseErrorsFirstErrorOnly(t *testing.T) {
	log := `! Undefined control sequence.
l.2 \node
?
! Missing $ inserted.
l.5 \draw
?`

	errs := ParseErrors(log, sampleSource)
	require.Len(t, errs, 1)
	assert.Equal(t, "Undefined control sequence.", errs[0].Message)
	require.NotNil(t, errs[0].Line)
	assert.Equal(t, 2, *errs[0].Line)
}

func TestParseErrorsNoMarker(t *testing.T) {
	log := `This is pdfTeX, Version 3.141592653
Output written on figure.pdf (1 page, 1234 bytes).
Fatal fontconfig failure, no usable diagnostics.`

	errs := ParseErrors(log, sampleSource)
	assert.Empty(t, errs)
}

func TestParseErrorsMarkerWithoutLine(t *testing.T) {
	// The l.<n> search window is 10 lines; a marker past it is ignored.
	log := `! Package tikz Error: Giving up on this path.
line one
line two
line three
line four
line five
line six
line seven
line eight
line nine
l.3 \node[draw] (b)`

	errs := ParseErrors(log, sampleSource)
	require.Len(t, errs, 1)
	assert.Equal(t, "Package tikz Error: Giving up on this path.", errs[0].Message)
	assert.Nil(t, errs[0].Line)
	assert.Empty(t, errs[0].Context)
}

func TestParseErrorsLineOutOfRange(t *testing.T) {
	log := `! Emergency stop.
l.999 \end{tikzpicture}`

	errs := ParseErrors(log, sampleSource)
	require.Len(t, errs, 1)
	require.NotNil(t, errs[0].Line)
	assert.Equal(t, 999, *errs[0].Line)
	assert.Empty(t, errs[0].Context)
}

func TestContextWindowClampsAtEdges(t *testing.T) {
	got := contextWindow("a\nb\nc\nd\ne", 1, 3)
	assert.Equal(t, "a\nb\nc\nd", got)

	got = contextWindow("a\nb\nc\nd\ne", 5, 3)
	assert.Equal(t, "b\nc\nd\ne", got)
}
