// Package textsplitters provides paragraph-boundary splitting for markdown
// documents, used as the segmenter's fallback when a document (or a
// heading's body) has no further heading levels to split on.
package textsplitters
