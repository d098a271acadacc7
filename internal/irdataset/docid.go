package irdataset

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/internal/config"
)

var (
	ErrMalformedQueryID = errors.New("malformed query id")
	ErrMetaNotFound     = errors.New("resource meta not found")
	ErrMissingMapping   = errors.New("qrel query has no id mapping")
	ErrCategoryUnknown  = errors.New("unknown resource category")
)

// SafeStem returns stem unchanged when it only holds [A-Za-z0-9_-], otherwise
// the hex md5 of its UTF-8 bytes.
func SafeStem(stem string) string {
	for _, r := range stem {
		if !isSafeRune(r) {
			sum := md5.Sum([]byte(stem))
			return hex.EncodeToString(sum[:])
		}
	}
	return stem
}

func isSafeRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// FilenameCode is the identifier segment derived from a resource's pdf
// filename: the safe form of "{stem}_middle".
func FilenameCode(pdfFilename string) string {
	stem := strings.TrimSuffix(pdfFilename, filepath.Ext(pdfFilename))
	return SafeStem(stem + "_middle")
}

// PDFStem strips the parser's middle suffix from a processed file name.
func PDFStem(middleFile string) (string, bool) {
	if len(middleFile) < len(config.MiddleFileSuffix) ||
		!strings.EqualFold(middleFile[len(middleFile)-len(config.MiddleFileSuffix):], config.MiddleFileSuffix) {
		return "", false
	}
	return middleFile[:len(middleFile)-len(config.MiddleFileSuffix)], true
}

func ParagraphDocID(resourceID string, pageIdx, paragraphIdx int) string {
	return fmt.Sprintf("%s_%d_%d", resourceID, pageIdx, paragraphIdx)
}

func PageID(resourceID string, pageIdx int) string {
	return fmt.Sprintf("%s_%d", resourceID, pageIdx)
}

// LegacyPageID is the verbose composite key used before ids were remapped
// onto resource ids.
func LegacyPageID(groupID, category, filenameCode string, pageIdx int) string {
	return fmt.Sprintf("%s_%s_%s_%d", groupID, category, filenameCode, pageIdx)
}

// UnsplitDocID names a whole-document record of the unsplit variant.
func UnsplitDocID(courseBagID, mdStem string) string {
	return courseBagID + "_" + config.LessonPlanCategory + "_" + mdStem
}

// splitLast splits id at its last underscore.
func splitLast(id string) (head, tail string, ok bool) {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return id, "", false
	}
	return id[:i], id[i+1:], true
}
