// Package textutil provides the text normalization and similarity measures
// used for roster name matching and duplicate claim detection.
//
// Fold is the single normalization: case folding, diacritic removal, and
// punctuation collapse, so "Zoë" and "zoe" compare equal. Jaro-Winkler scores
// single names; term-frequency fingerprints with cosine similarity score
// multi-word names and claim titles.
package textutil
