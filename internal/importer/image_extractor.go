package importer

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"catalog-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// anchorRef is one image anchor found in a drawing part. Row is the 0-based
// row of the declared top-left grid position, exactly as written in the XML.
type anchorRef struct {
	Row     int
	EmbedID string
	TwoCell bool
}

// drawingParser turns the workbook's drawing part and its relationship
// manifest into anchor/target mappings. The contract is deliberately narrow
// so the regex implementation can be swapped for a real XML parser without
// touching the row-to-image mapping logic.
type drawingParser interface {
	ParseAnchors(drawingXML string) []anchorRef
	ParseRelationships(relsXML string) map[string]string
}

// regexDrawingParser parses the two XML parts with anchored regexes. This is
// a narrow parser for the spreadsheet drawing dialect only; it makes no
// attempt to be a general XML parser.
type regexDrawingParser struct{}

var (
	twoCellAnchorRe = regexp.MustCompile(`(?s)<xdr:twoCellAnchor.*?</xdr:twoCellAnchor>`)
	oneCellAnchorRe = regexp.MustCompile(`(?s)<xdr:oneCellAnchor.*?</xdr:oneCellAnchor>`)
	anchorFromRowRe = regexp.MustCompile(`(?s)<xdr:from>.*?<xdr:row>(\d+)</xdr:row>`)
	blipEmbedRe     = regexp.MustCompile(`<a:blip[^>]*r:embed="([^"]+)"`)
	relationshipRe  = regexp.MustCompile(`<Relationship\b[^>]*/?>`)
	relIDRe         = regexp.MustCompile(`\bId="([^"]+)"`)
	relTargetRe     = regexp.MustCompile(`\bTarget="([^"]+)"`)
)

func (regexDrawingParser) ParseAnchors(drawingXML string) []anchorRef {
	var anchors []anchorRef
	for _, block := range oneCellAnchorRe.FindAllString(drawingXML, -1) {
		if a, ok := parseAnchorBlock(block, false); ok {
			anchors = append(anchors, a)
		}
	}
	for _, block := range twoCellAnchorRe.FindAllString(drawingXML, -1) {
		if a, ok := parseAnchorBlock(block, true); ok {
			anchors = append(anchors, a)
		}
	}
	return anchors
}

func parseAnchorBlock(block string, twoCell bool) (anchorRef, bool) {
	rowMatch := anchorFromRowRe.FindStringSubmatch(block)
	embedMatch := blipEmbedRe.FindStringSubmatch(block)
	if rowMatch == nil || embedMatch == nil {
		return anchorRef{}, false
	}
	row, err := strconv.Atoi(rowMatch[1])
	if err != nil {
		return anchorRef{}, false
	}
	return anchorRef{Row: row, EmbedID: embedMatch[1], TwoCell: twoCell}, true
}

func (regexDrawingParser) ParseRelationships(relsXML string) map[string]string {
	rels := make(map[string]string)
	for _, tag := range relationshipRe.FindAllString(relsXML, -1) {
		id := relIDRe.FindStringSubmatch(tag)
		target := relTargetRe.FindStringSubmatch(tag)
		if id == nil || target == nil {
			continue
		}
		rels[id[1]] = path.Base(target[1])
	}
	return rels
}

// Extractor unpacks the workbook container and persists the embedded images
// it can anchor to rows. It has no catalog knowledge.
type Extractor struct {
	storage storage.FileStorage
	parser  drawingParser
	logger  *logrus.Entry
}

func NewExtractor(fs storage.FileStorage, logger *logrus.Logger) *Extractor {
	return &Extractor{
		storage: fs,
		parser:  regexDrawingParser{},
		logger:  logger.WithField("component", "image-extractor"),
	}
}

// ExtractImages unpacks the workbook at workbookPath into a temporary
// workspace, maps anchored images to 1-based spreadsheet rows, copies each
// referenced blob into permanent storage, and removes the workspace
// unconditionally. Extraction is best-effort: any failure is logged and
// yields a partial (possibly empty) map, never an error.
func (e *Extractor) ExtractImages(workbookPath string) map[int]string {
	images := make(map[int]string)

	tmpDir, err := os.MkdirTemp("", "catalog-sync-")
	if err != nil {
		e.logger.WithError(err).Warn("Failed to create extraction workspace")
		return images
	}
	defer os.RemoveAll(tmpDir)

	if err := unzip(workbookPath, tmpDir); err != nil {
		e.logger.WithError(err).Warn("Failed to unpack workbook container")
		return images
	}

	drawings, _ := filepath.Glob(filepath.Join(tmpDir, "xl", "drawings", "drawing*.xml"))
	savedByFile := make(map[string]string)

	for _, drawingPath := range drawings {
		relsPath := filepath.Join(filepath.Dir(drawingPath), "_rels", filepath.Base(drawingPath)+".rels")

		drawingXML, err := os.ReadFile(drawingPath)
		if err != nil {
			e.logger.WithError(err).Warn("Failed to read drawing part")
			continue
		}
		relsXML, err := os.ReadFile(relsPath)
		if err != nil {
			e.logger.WithError(err).Warn("Failed to read drawing relationships")
			continue
		}

		rels := e.parser.ParseRelationships(string(relsXML))

		// One-cell anchors first; a two-cell anchor describing the same row
		// takes precedence.
		twoCellRows := make(map[int]bool)
		for _, anchor := range e.parser.ParseAnchors(string(drawingXML)) {
			mediaFile, ok := rels[anchor.EmbedID]
			if !ok {
				continue
			}
			// The xdr row is the 0-based declared top-left position; the
			// image belongs to the data row immediately below it. Getting
			// this wrong binds every image to the wrong variant.
			row := anchor.Row + 2
			if !anchor.TwoCell && twoCellRows[row] {
				continue
			}
			if anchor.TwoCell {
				twoCellRows[row] = true
			} else if _, taken := images[row]; taken {
				continue
			}

			saved, ok := savedByFile[mediaFile]
			if !ok {
				data, err := os.ReadFile(filepath.Join(tmpDir, "xl", "media", mediaFile))
				if err != nil {
					e.logger.WithError(err).WithField("media", mediaFile).Warn("Failed to read embedded image")
					continue
				}
				saved, err = e.storage.SaveFile(data, mediaFile, "catalog")
				if err != nil {
					e.logger.WithError(err).WithField("media", mediaFile).Warn("Failed to persist embedded image")
					continue
				}
				savedByFile[mediaFile] = saved
			}
			images[row] = saved
		}
	}

	return images
}

// unzip extracts an archive into dest, refusing entries that would escape it.
func unzip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(dest, filepath.FromSlash(file.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			continue
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		dst.Close()
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
