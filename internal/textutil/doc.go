// Package textutil turns free-form captions into filename stems and tokens.
//
// Stemmer is the single entry point the rename pipeline uses. It strips chatty
// lead-ins ("Here is the title: ..."), keeps the first line, folds accents,
// drops punctuation, joins words with underscores, lowercases, and bounds the
// length. It is total: any input, including the empty string, yields a usable
// stem, falling back to a fixed name when nothing survives.
//
// SanitizeToken produces lowercase tokens for internal file names such as lock
// files.
package textutil
