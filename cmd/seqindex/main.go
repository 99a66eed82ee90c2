// seqindex builds and queries id and keyword indexes over FASTA-style flat
// files.
//
//	seqindex --dir db build uniprot.fa
//	seqindex --dir db lookup P69905
//	seqindex --dir db search 'P699*'
//	seqindex --dir db keyword 'hemoglo*'
package main

import (
	"fmt"
	"os"

	"SeqIndex/logger"
	"SeqIndex/settings"
	storageengine "SeqIndex/storage_engine"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	dir        string
	configPath string
	cfg        settings.Config
	log        *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "seqindex",
		Short:         "On-disk B+tree indexes over sequence flat files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.dir, "dir", "", "database directory (default from config, else .)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")

	root.AddCommand(
		a.buildCmd(),
		a.lookupCmd(),
		a.searchCmd(),
		a.keywordCmd(),
		a.deleteCmd(),
		a.statsCmd(),
		a.checkCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := settings.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dir == "" {
		a.dir = cfg.Database.Dir
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) open(readOnly bool) (*storageengine.StorageEngine, error) {
	return storageengine.NewStorageEngine(a.dir, storageengine.Options{
		Index:    a.cfg.IndexOptions(),
		ReadOnly: readOnly,
		Logger:   a.log,
	})
}

// withEngine opens the database, runs fn and closes it, keeping fn's error
// over the close error.
func (a *app) withEngine(readOnly bool, fn func(*storageengine.StorageEngine) error) error {
	se, err := a.open(readOnly)
	if err != nil {
		return err
	}
	err = fn(se)
	if cerr := se.Close(); err == nil {
		err = cerr
	}
	return err
}
