// Command storagehubd is the thin process entrypoint wiring on-disk
// configuration and CLI flags to a single provider's blockchain-service
// actor. The chain connection and extrinsic signing themselves are an
// external collaborator's responsibility (spec §1 scope boundary); this
// binary only assembles the core components against whatever
// blockchainservice.ChainClient / ExtrinsicSubmitter the deployment
// supplies.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/storagehub/core/client/blockchainservice"
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/filesystem"
	"github.com/storagehub/core/payments"
	"github.com/storagehub/core/proofs"
	"github.com/storagehub/core/providers"
)

var log = logrus.WithField("prefix", "storagehubd")

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory for the provider's persistent queue store",
		Value: "./storagehub-data",
	}
	providerKindFlag = &cli.StringFlag{
		Name:  "kind",
		Usage: "provider kind this node runs: msp or bsp",
		Value: "bsp",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level: trace, debug, info, warn, error",
		Value: "info",
	}
)

func main() {
	app := &cli.App{
		Name:  "storagehubd",
		Usage: "runs the provider-side blockchain service actor",
		Flags: []cli.Flag{dataDirFlag, providerKindFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storagehubd exited with error")
	}
}

func run(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String(verbosityFlag.Name))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid verbosity: %v", err), 1)
	}
	logrus.SetLevel(level)

	kind, err := parseKind(c.String(providerKindFlag.Name))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	params := config.Current()

	ledger := providers.NewLedger()
	registry := providers.NewRegistry(ledger, params)
	engine := proofs.NewEngine(registry, params)
	registry.SetEngineHooks(engine)

	treasury := providers.AccountId{}
	paymentsMgr := payments.NewManager(ledger, registry, params, treasury)
	_ = filesystem.NewManager(ledger, registry, engine, paymentsMgr, params)

	dbPath := filepath.Join(c.String(dataDirFlag.Name), "blockchainservice.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return cli.Exit(fmt.Sprintf("failed to create data directory: %v", err), 1)
	}
	store, err := blockchainservice.OpenStore(dbPath, migrations())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open store: %v", err), 1)
	}
	defer store.Close()

	log.WithFields(logrus.Fields{"kind": kind, "datadir": c.String(dataDirFlag.Name)}).Info(
		"storagehubd assembled; chain connection must be supplied by an external collaborator to start the actor loop")
	return nil
}

func parseKind(s string) (providers.Kind, error) {
	switch s {
	case "msp":
		return providers.KindMSP, nil
	case "bsp":
		return providers.KindBSP, nil
	default:
		return 0, fmt.Errorf("unknown provider kind %q, want msp or bsp", s)
	}
}

// migrations is the schema-migration list this binary opens its store
// with. Empty for now: the initial schema created by
// blockchainservice.OpenStore's base-bucket setup is schema version 0,
// and no migration has yet been needed.
func migrations() []blockchainservice.Migration {
	return nil
}
