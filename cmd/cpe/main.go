// Command cpe emite comprobantes electrónicos ante SUNAT: genera el XML UBL 2.1,
// lo firma, lo empaqueta y lo transmite (o simula la aceptación).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cpe",
		Usage: "comprobantes de pago electrónicos SUNAT (UBL 2.1)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "simulado",
				Usage:   "no contacta a SUNAT; sintetiza un CDR de aceptación",
				EnvVars: []string{"SUNAT_SIMULATED"},
			},
			&cli.StringFlag{
				Name:  "salida",
				Usage: "directorio de XML, ZIP y CDR (por defecto SUNAT_OUTPUT_DIR)",
			},
			&cli.StringFlag{
				Name:  "nivel-log",
				Usage: "trace, debug, info, warn, error (por defecto LOG_LEVEL)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "emitir",
				Usage:     "emite los comprobantes de uno o más archivos JSON",
				ArgsUsage: "<archivo.json>...",
				Action:    emitAction,
			},
			{
				Name:      "estado",
				Usage:     "consulta getStatus de un comprobante registrado",
				ArgsUsage: "<id>",
				Action:    statusAction,
			},
			{
				Name:      "reenviar",
				Usage:     "reenvía el ZIP de un comprobante pendiente por error de transporte",
				ArgsUsage: "<id>",
				Action:    retransmitAction,
			},
			{
				Name:      "verificar",
				Usage:     "verifica la firma XML-DSig de un documento",
				ArgsUsage: "<firmado.xml>",
				Action:    verifyAction,
			},
			{
				Name:   "certificado",
				Usage:  "carga el certificado configurado y muestra sus datos públicos",
				Action: certificateAction,
			},
			{
				Name:   "migrar",
				Usage:  "aplica las migraciones pendientes de PostgreSQL",
				Action: migrateAction,
			},
		},
	}
}
