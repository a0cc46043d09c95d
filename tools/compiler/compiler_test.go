package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDocument(t *testing.T) {
	c := New("", 0)
	doc := c.WrapDocument("\\begin{tikzpicture}\\end{tikzpicture}")

	assert.Contains(t, doc, `\documentclass[border=5pt]{standalone}`)
	assert.Contains(t, doc, `\usetikzlibrary{calc,positioning,arrows.meta,shapes,backgrounds,fit,math}`)
	assert.Contains(t, doc, "\\begin{tikzpicture}\\end{tikzpicture}")
}

func TestWrapDocumentInjectsPreamble(t *testing.T) {
	c := New("\\tikzset{box/.style={draw,rounded corners}}\n", 0)
	doc := c.WrapDocument("\\begin{tikzpicture}\\end{tikzpicture}")

	assert.Contains(t, doc, "\\tikzset{box/.style={draw,rounded corners}}")
}
