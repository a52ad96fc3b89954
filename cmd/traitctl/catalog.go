package main

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	catalogdoc "traitcore/docs/catalog"
	"traitcore/internal/archive"
	"traitcore/pkg/trait"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the compiled trait catalog",
	}
	catalog.AddCommand(newCatalogListCmd(opts))
	catalog.AddCommand(newCatalogShowCmd(opts))
	catalog.AddCommand(newCatalogGraphCmd(opts))
	catalog.AddCommand(newCatalogExportCmd(opts))
	return catalog
}

func newCatalogListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every catalog trait",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, t := range trait.Traits() {
				def, err := trait.DefinitionFor(t)
				if err != nil {
					return &systemError{err: err}
				}
				if _, err := fmt.Fprintf(w, "%-17s v%-7s %s\n", def.Trait, def.Version, def.Description); err != nil {
					return &systemError{err: err}
				}
			}
			opts.logger.Debug("catalog listed", "traits", len(trait.Traits()))
			return nil
		},
	}
}

func newCatalogShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trait>",
		Short: "Show one trait contract in canonical document form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := trait.ParseTrait(args[0])
			if err != nil {
				return err
			}
			def, err := trait.DefinitionFor(t)
			if err != nil {
				return &systemError{err: err}
			}
			opts.logger.Debug("catalog trait shown", "trait", t.Key())
			return printJSON(cmd.OutOrStdout(), documentTrait(def))
		},
	}
}

func newCatalogGraphCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the trait dependency edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			edges := 0
			for _, t := range trait.Traits() {
				def, err := trait.DefinitionFor(t)
				if err != nil {
					return &systemError{err: err}
				}
				for _, dep := range def.Dependencies {
					if _, err := fmt.Fprintf(w, "%s -> %s\n", t, dep); err != nil {
						return &systemError{err: err}
					}
					edges++
				}
			}
			opts.logger.Debug("dependency graph printed", "edges", edges)
			return nil
		},
	}
}

func newCatalogExportCmd(opts *rootOptions) *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the canonical catalog document",
		Long:  "Export the canonical catalog document as JSON or YAML, either to\nstdout or as a new object in the configured archive store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := opts.vp.GetString("format")
			payload, contentType, err := exportPayload(format)
			if err != nil {
				return err
			}
			if !opts.vp.GetBool("archive") {
				if _, err := cmd.OutOrStdout().Write(payload); err != nil {
					return &systemError{err: err}
				}
				return nil
			}

			version, err := catalogdoc.Version()
			if err != nil {
				return &systemError{err: fmt.Errorf("load catalog document: %w", err)}
			}
			store, err := archive.Open(cmd.Context())
			if err != nil {
				return &systemError{err: fmt.Errorf("open archive: %w", err)}
			}
			key := fmt.Sprintf("catalog/%s-%s.%s", version, uuid.NewString(), format)
			info, err := store.Put(cmd.Context(), key, bytes.NewReader(payload), archive.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"fingerprint": catalogdoc.Fingerprint()},
			})
			if err != nil {
				return &systemError{err: fmt.Errorf("store catalog document: %w", err)}
			}
			opts.logger.Debug("catalog exported",
				"key", info.Key, "etag", info.ETag, "driver", string(store.Driver()))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes, %s)\n", info.Key, info.Size, store.Driver())
			if err != nil {
				return &systemError{err: err}
			}
			return nil
		},
	}
	export.Flags().String("format", "json", "export format: json or yaml")
	export.Flags().Bool("archive", false, "store the document in the archive instead of printing it")
	_ = opts.vp.BindPFlag("format", export.Flags().Lookup("format"))
	_ = opts.vp.BindPFlag("archive", export.Flags().Lookup("archive"))
	return export
}

func exportPayload(format string) ([]byte, string, error) {
	switch format {
	case "json":
		raw := catalogdoc.Raw()
		if !bytes.HasSuffix(raw, []byte("\n")) {
			raw = append(raw, '\n')
		}
		return raw, "application/json", nil
	case "yaml":
		doc, err := catalogdoc.Load()
		if err != nil {
			return nil, "", &systemError{err: fmt.Errorf("load catalog document: %w", err)}
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, "", &systemError{err: fmt.Errorf("encode catalog document: %w", err)}
		}
		return data, "application/yaml", nil
	default:
		return nil, "", fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}
