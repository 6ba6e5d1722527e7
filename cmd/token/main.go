// token emite un JWT firmado con JWT_SECRET para llamar a la API en desarrollo.
//
// Uso: go run ./cmd/token -user <id> -role admin|bodeguero|auditor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

func main() {
	userID := flag.String("user", "00000000-0000-0000-0000-000000000001", "id del usuario (claim user_id)")
	role := flag.String("role", "admin", "rol: admin, bodeguero o auditor")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generar token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
