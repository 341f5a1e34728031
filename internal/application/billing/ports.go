package billing

import (
	"context"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
)

// DocumentBuilder genera el XML UBL sin firmar (con el ExtensionContent vacío).
type DocumentBuilder interface {
	Build(inv *entity.Invoice) ([]byte, error)
}

// XMLSigner inserta la firma enveloped en el ExtensionContent.
type XMLSigner interface {
	Sign(unsigned []byte, material *signer.SigningMaterial) (*signer.SignedDocument, error)
}

// ArtifactStore persiste XML, ZIP y CDR en el directorio de salida.
type ArtifactStore interface {
	Package(signed []byte, baseName string) (*infrasunat.Package, error)
	WriteCDR(baseName string, cdr []byte) (string, error)
	ReadFile(name string) ([]byte, error)
}

// Transmitter puerto de salida hacia el billService (real o simulado).
type Transmitter interface {
	SendBill(ctx context.Context, zip []byte, fileName string) *domsunat.TransmissionResult
	GetStatus(ctx context.Context, ruc, docType, series string, number int64) (*infrasunat.StatusResult, error)
}
