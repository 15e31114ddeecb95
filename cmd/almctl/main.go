/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command almctl is the operator CLI for almserver: key-pair generation
// for signature testing, offline signature verification, demo data
// seeding, and one-off schedule solves against a JSON project input —
// none of which require the HTTP surface to be up.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/almforge/coreforge/internal/config"
	"github.com/almforge/coreforge/internal/database"
	"github.com/almforge/coreforge/pkg/audit"
	"github.com/almforge/coreforge/pkg/crypto"
	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/scheduler"
	"github.com/almforge/coreforge/pkg/shared/logging"
	"github.com/almforge/coreforge/pkg/signature"
	"github.com/almforge/coreforge/pkg/workitem"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "schedule-solve":
		err = runScheduleSolve(os.Args[2:])
	case "seed":
		err = runSeed(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "almctl: "+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: almctl <command> [flags]

commands:
  keygen           generate an RSA key pair for signing work items
  verify           verify a detached signature against a canonical hash
  schedule-solve   solve a project schedule from a JSON input file
  seed             create demo requirements against the configured store`)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	bits := fs.Int("bits", 2048, "RSA key size in bits")
	fs.Parse(args)

	priv, pub, err := crypto.GenerateKeyPair(*bits)
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}
	fmt.Println(priv)
	fmt.Println(pub)
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	contentHash := fs.String("hash", "", "hex-encoded canonical content hash")
	signatureHex := fs.String("signature", "", "hex-encoded signature")
	publicKeyPath := fs.String("public-key", "", "path to the PEM-encoded public key")
	fs.Parse(args)

	if *contentHash == "" || *signatureHex == "" || *publicKeyPath == "" {
		return fmt.Errorf("-hash, -signature, and -public-key are all required")
	}
	pemBytes, err := os.ReadFile(*publicKeyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}

	if crypto.Verify(*contentHash, *signatureHex, string(pemBytes)) {
		fmt.Println("valid")
		return nil
	}
	fmt.Println("invalid")
	os.Exit(1)
	return nil
}

func runScheduleSolve(args []string) error {
	fs := flag.NewFlagSet("schedule-solve", flag.ExitOnError)
	inputPath := fs.String("input", "", "path to a JSON-encoded scheduler.Input")
	fs.Parse(args)

	if *inputPath == "" {
		return fmt.Errorf("-input is required")
	}
	data, err := os.ReadFile(*inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	var in scheduler.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse input file: %w", err)
	}

	svc := scheduler.NewService(1)
	sched, err := svc.Solve(context.Background(), in)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sched)
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("count", 5, "number of sample requirements to create")
	actor := fs.String("actor", "almctl", "created_by attributed to the seeded work items")
	fs.Parse(args)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	dbCfg := database.DefaultConfig()
	dbCfg.LoadFromEnv()
	sqlDB, err := database.Connect(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("connect relational store: %w", err)
	}
	defer sqlDB.Close()

	auditLog := audit.NewBufferedStore(audit.NewPostgresStore(sqlDB), audit.DefaultBufferedStoreConfig(), logger)
	defer auditLog.Close()

	g := graph.NewMemoryExecutor(logger)
	signatureSvc := signature.NewService(signature.NewPostgresRepository(sqlDB), auditLog)
	items := workitem.NewStore(g, signatureSvc, auditLog)

	ctx := context.Background()
	for i := 0; i < *count; i++ {
		snap, err := items.Create(ctx, workitem.CreateInput{
			Type:      workitem.TypeRequirement,
			Title:     fmt.Sprintf("Seeded requirement #%d", i+1),
			CreatedBy: *actor,
			Status:    "draft",
		})
		if err != nil {
			return fmt.Errorf("create seed requirement %d: %w", i+1, err)
		}
		fmt.Printf("created %s (%s)\n", snap.ID, snap.Title)
	}

	logger.Info("seed complete", zap.Int("count", *count))
	return nil
}
