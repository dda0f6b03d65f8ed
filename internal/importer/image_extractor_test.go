package importer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"catalog-service/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func writeWorkbookZip(t *testing.T, files map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		assert.NoError(t, err)
		_, err = w.Write(data)
		assert.NoError(t, err)
	}
	assert.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	assert.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func oneCellAnchor(row int, embedID string) string {
	return fmt.Sprintf(`<xdr:oneCellAnchor>
		<xdr:from><xdr:col>1</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>%d</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
		<xdr:pic><xdr:blipFill><a:blip r:embed="%s"/></xdr:blipFill></xdr:pic>
	</xdr:oneCellAnchor>`, row, embedID)
}

func twoCellAnchor(row int, embedID string) string {
	return fmt.Sprintf(`<xdr:twoCellAnchor>
		<xdr:from><xdr:col>1</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>%d</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
		<xdr:to><xdr:col>2</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>%d</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>
		<xdr:pic><xdr:blipFill><a:blip r:embed="%s"/></xdr:blipFill></xdr:pic>
	</xdr:twoCellAnchor>`, row, row+1, embedID)
}

func drawingXML(anchors ...string) []byte {
	body := ""
	for _, a := range anchors {
		body += a
	}
	return []byte(`<xdr:wsDr>` + body + `</xdr:wsDr>`)
}

func relsXML(rels map[string]string) []byte {
	body := ""
	for id, target := range rels {
		body += fmt.Sprintf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, id, target)
	}
	return []byte(`<Relationships>` + body + `</Relationships>`)
}

func newTestExtractor(t *testing.T) (*Extractor, string) {
	t.Helper()
	root := t.TempDir()
	fs, err := storage.NewLocalStorage(root)
	assert.NoError(t, err)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewExtractor(fs, logger), root
}

func savedContent(t *testing.T, root, relative string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relative)))
	assert.NoError(t, err)
	return data
}

func TestExtractImagesAnchorsToDataRow(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/drawings/drawing1.xml":            drawingXML(oneCellAnchor(2, "rId1")),
		"xl/drawings/_rels/drawing1.xml.rels": relsXML(map[string]string{"rId1": "../media/image1.png"}),
		"xl/media/image1.png":                 []byte("png-bytes-1"),
	})
	extractor, root := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	// A declared top-left at 0-based row 2 belongs to 1-based data row 4.
	assert.Len(t, images, 1)
	path, ok := images[4]
	assert.True(t, ok)
	assert.Equal(t, []byte("png-bytes-1"), savedContent(t, root, path))
}

func TestExtractImagesTwoCellAnchorWins(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/drawings/drawing1.xml": drawingXML(
			oneCellAnchor(2, "rId1"),
			twoCellAnchor(2, "rId2"),
		),
		"xl/drawings/_rels/drawing1.xml.rels": relsXML(map[string]string{
			"rId1": "../media/image1.png",
			"rId2": "../media/image2.png",
		}),
		"xl/media/image1.png": []byte("one-cell"),
		"xl/media/image2.png": []byte("two-cell"),
	})
	extractor, root := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	assert.Len(t, images, 1)
	assert.Equal(t, []byte("two-cell"), savedContent(t, root, images[4]))
}

func TestExtractImagesFirstOneCellAnchorKept(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/drawings/drawing1.xml": drawingXML(
			oneCellAnchor(5, "rId1"),
			oneCellAnchor(5, "rId2"),
		),
		"xl/drawings/_rels/drawing1.xml.rels": relsXML(map[string]string{
			"rId1": "../media/image1.png",
			"rId2": "../media/image2.png",
		}),
		"xl/media/image1.png": []byte("first"),
		"xl/media/image2.png": []byte("second"),
	})
	extractor, root := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	assert.Len(t, images, 1)
	assert.Equal(t, []byte("first"), savedContent(t, root, images[7]))
}

func TestExtractImagesSharedMediaSavedOnce(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/drawings/drawing1.xml": drawingXML(
			oneCellAnchor(2, "rId1"),
			oneCellAnchor(3, "rId1"),
		),
		"xl/drawings/_rels/drawing1.xml.rels": relsXML(map[string]string{"rId1": "../media/image1.png"}),
		"xl/media/image1.png":                 []byte("shared"),
	})
	extractor, root := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	assert.Len(t, images, 2)
	assert.Equal(t, images[4], images[5])

	saved, err := filepath.Glob(filepath.Join(root, "catalog", "*"))
	assert.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestExtractImagesUnknownEmbedSkipped(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/drawings/drawing1.xml":            drawingXML(oneCellAnchor(2, "rId99")),
		"xl/drawings/_rels/drawing1.xml.rels": relsXML(map[string]string{"rId1": "../media/image1.png"}),
		"xl/media/image1.png":                 []byte("orphan"),
	})
	extractor, _ := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	assert.Empty(t, images)
}

func TestExtractImagesNoDrawings(t *testing.T) {
	workbook := writeWorkbookZip(t, map[string][]byte{
		"xl/worksheets/sheet1.xml": []byte("<worksheet/>"),
	})
	extractor, _ := newTestExtractor(t)

	images := extractor.ExtractImages(workbook)

	assert.Empty(t, images)
}

func TestExtractImagesUnreadableArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-zip.xlsx")
	assert.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
	extractor, _ := newTestExtractor(t)

	images := extractor.ExtractImages(path)

	assert.Empty(t, images)
}
