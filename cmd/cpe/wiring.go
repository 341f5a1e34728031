package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/jhoicas/sunat-cpe/internal/application/billing"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/postgres"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/sunat-cpe/pkg/config"
	"github.com/jhoicas/sunat-cpe/pkg/logger"
)

// env dependencias compartidas por los comandos.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	if c.IsSet("simulado") {
		cfg.SUNAT.Simulated = c.Bool("simulado")
	}
	if dir := c.String("salida"); dir != "" {
		cfg.SUNAT.OutputDir = dir
	}
	if lvl := c.String("nivel-log"); lvl != "" {
		cfg.App.LogLevel = lvl
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, e.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	return pool, nil
}

// loadMaterial carga el certificado configurado. En modo simulado sin
// certificado se firma con material efímero.
func (e *env) loadMaterial() (*signer.SigningMaterial, error) {
	sc := e.cfg.SUNAT
	if sc.CertPath == "" {
		if !sc.Simulated {
			return nil, errors.New("SUNAT_CERT_PATH no configurado")
		}
		e.log.Warn().Msg("sin certificado: se firma con material autofirmado (sólo modo simulado)")
		return signer.EphemeralMaterial("CPE SIMULADO", sc.RUC)
	}
	switch strings.ToLower(filepath.Ext(sc.CertPath)) {
	case ".p12", ".pfx":
		return signer.LoadSigningMaterial(sc.CertPath, sc.CertPassword)
	default:
		return signer.LoadFromPEM(sc.CertPath, sc.CertKeyPath)
	}
}

// emissionService arma el orquestador sobre pool. El llamador cierra pool.
func (e *env) emissionService(pool *pgxpool.Pool) (*billing.EmissionService, error) {
	sc := e.cfg.SUNAT
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	material, err := e.loadMaterial()
	if err != nil {
		return nil, err
	}
	e.log.Info().Object("certificado", material).Msg("certificado cargado")

	mode := infrasunat.ModeLive
	if sc.Simulated {
		mode = infrasunat.ModeSimulated
	}
	clientCfg := infrasunat.ClientConfig{
		Endpoint:       sc.BillServiceURL(),
		StatusEndpoint: sc.StatusEndpoint,
		RUC:            sc.RUC,
		SOLUser:        sc.SOLUser,
		SOLPassword:    sc.SOLPassword,
		Timeout:        sc.Timeout,
		Mode:           mode,
	}
	if sc.MutualTLS {
		clientCfg.TLS = material.TLSConfig()
	}

	return billing.NewEmissionService(
		postgres.NewInvoiceRepository(pool),
		postgres.NewSequenceRepository(pool),
		infrasunat.NewXMLBuilderService(),
		signer.NewDigitalSignatureService(),
		material,
		infrasunat.NewPackager(afero.NewOsFs(), sc.OutputDir),
		infrasunat.NewSOAPClient(clientCfg, e.log.Component("sunat")),
		e.log.Zerolog(),
	), nil
}
