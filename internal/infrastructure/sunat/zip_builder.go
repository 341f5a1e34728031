package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	pkgsunat "github.com/jhoicas/sunat-cpe/pkg/sunat"
)

// zipEpoch fecha fija de las entradas: el mismo XML produce siempre el mismo ZIP.
var zipEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Package rutas generadas para un comprobante.
type Package struct {
	BaseName string
	XMLPath  string
	ZipPath  string
	Zip      []byte
}

// Packager escribe el XML firmado y su ZIP en el directorio de salida.
type Packager struct {
	fs  afero.Fs
	dir string
}

// NewPackager construye el empaquetador sobre fs (afero.NewOsFs en producción).
func NewPackager(fs afero.Fs, dir string) *Packager {
	if dir == "" {
		dir = "."
	}
	return &Packager{fs: fs, dir: dir}
}

// FileName arma el nombre base que SUNAT exige para el ZIP y el XML interno.
// Ejemplo: 20123456786-01-F001-00000027
func FileName(ruc, docType, series string, number int64) string {
	return pkgsunat.FileBaseName(ruc, docType, series, number)
}

// CDRFileName nombre del ZIP de constancia: R-{base}.zip
func CDRFileName(base string) string {
	return pkgsunat.CDRBaseName(base) + ".zip"
}

// Package escribe {base}.xml y {base}.zip (una sola entrada {base}.xml).
// Volver a empaquetar el mismo documento sobrescribe con bytes idénticos.
func (p *Packager) Package(signed []byte, baseName string) (*Package, error) {
	if baseName == "" {
		return nil, fmt.Errorf("zip: nombre de archivo vacío")
	}
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("zip: crear directorio %s: %w", p.dir, err)
	}

	xmlPath := filepath.Join(p.dir, baseName+".xml")
	if err := afero.WriteFile(p.fs, xmlPath, signed, 0o644); err != nil {
		return nil, fmt.Errorf("zip: escribir %s: %w", xmlPath, err)
	}

	zipBytes, err := CompressXMLToZip(signed, baseName+".xml")
	if err != nil {
		return nil, err
	}
	zipPath := filepath.Join(p.dir, baseName+".zip")
	if err := afero.WriteFile(p.fs, zipPath, zipBytes, 0o644); err != nil {
		return nil, fmt.Errorf("zip: escribir %s: %w", zipPath, err)
	}

	return &Package{BaseName: baseName, XMLPath: xmlPath, ZipPath: zipPath, Zip: zipBytes}, nil
}

// WriteCDR guarda el CDR devuelto (o simulado) como R-{base}.zip.
func (p *Packager) WriteCDR(baseName string, cdr []byte) (string, error) {
	if len(cdr) == 0 {
		return "", fmt.Errorf("zip: CDR vacío para %s", baseName)
	}
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("zip: crear directorio %s: %w", p.dir, err)
	}
	cdrPath := filepath.Join(p.dir, CDRFileName(baseName))
	if err := afero.WriteFile(p.fs, cdrPath, cdr, 0o644); err != nil {
		return "", fmt.Errorf("zip: escribir CDR %s: %w", cdrPath, err)
	}
	return cdrPath, nil
}

// ReadFile lee un artefacto previamente generado (XML firmado o CDR).
func (p *Packager) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(p.fs, name)
}

// CompressXMLToZip empaqueta el XML en un ZIP en memoria con una única entrada.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     xmlFilename,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	})
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// firstXMLEntry devuelve el contenido de la primera entrada .xml de un ZIP.
func firstXMLEntry(data []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("zip: abrir: %w", err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("zip: abrir %s: %w", f.Name, err)
		}
		var out bytes.Buffer
		_, err = out.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("zip: leer %s: %w", f.Name, err)
		}
		return f.Name, out.Bytes(), nil
	}
	return "", nil, fmt.Errorf("zip: sin entrada .xml")
}
