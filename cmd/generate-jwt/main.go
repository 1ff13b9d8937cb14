package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
	"github.com/builders-garden/zk-wormhole-monorepo/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "config file (default config.local.yaml or config.yaml)")
	operator := flag.String("operator", "operator", "operator name recorded in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// Secret comes from auth.jwtSecret / JWT_SECRET
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	tokenString, claims, err := middleware.GenerateToken([]byte(cfg.Auth.JWTSecret), *operator, *ttl)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("API Token Generated")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  Operator: %s\n", claims.Operator)
	fmt.Printf("  Issuer: %s\n", claims.Issuer)
	fmt.Printf("  Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("Usage:")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:%d/api/v1/runs\n", tokenString, cfg.Server.Port)
	fmt.Println()
}
