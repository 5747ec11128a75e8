package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"catalog-service/internal/config"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Deps are the services the maintenance commands drive.
type Deps struct {
	Duplicates *services.DuplicateResolver
	Suppliers  *services.SupplierLifecycleManager
	Pricing    *services.PricingService
}

// Opener builds Deps for a command run. The returned func releases them.
type Opener func(opts *RootOptions) (*Deps, func(), error)

// NewDeps wires the services over db without Redis or event publishing.
func NewDeps(db *gorm.DB, formulasFile string, log *logrus.Entry) (*Deps, error) {
	defaults, err := config.LoadFormulas(formulasFile)
	if err != nil {
		return nil, err
	}
	products := repository.NewCatalogRepository(db, nil)
	orders := repository.NewOrdersRepository(db)
	formulas := repository.NewFormulaRepository(db, nil, defaults)

	return &Deps{
		Duplicates: services.NewDuplicateResolver(products, orders, nil, log),
		Suppliers:  services.NewSupplierLifecycleManager(products, orders, nil, log),
		Pricing:    services.NewPricingService(products, formulas, log),
	}, nil
}

// OpenFromEnv connects with the same environment the service reads.
func OpenFromEnv(opts *RootOptions) (*Deps, func(), error) {
	cfg := config.Load()
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	}

	deps, err := NewDeps(db, cfg.FormulasFile, logrus.NewEntry(l).WithField("service", "catalogctl"))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return deps, closeFn, nil
}

// NewRootCommand creates the root command for catalogctl.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Catalog maintenance",
		Long:  "Scan and merge duplicate catalog rows, manage suppliers and inspect pricing formulas.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newDuplicatesCommand(opts, open))
	cmd.AddCommand(newSuppliersCommand(opts, open))
	cmd.AddCommand(newFormulasCommand(opts, open))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withDeps opens Deps around fn.
func withDeps(opts *RootOptions, open Opener, fn func(*Deps) error) error {
	deps, closeFn, err := open(opts)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(deps)
}

// render writes v as indented JSON, or calls text for the text format.
func render(opts *RootOptions, w io.Writer, v interface{}, text func(io.Writer) error) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
