package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/preppro/backend/internal/mcq"
	"github.com/spf13/cobra"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Manage the MCQ bank used for semantic search",
}

var bankImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Embed a bank CSV and store it in Postgres (and optionally Pinecone)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		usePinecone, _ := cmd.Flags().GetBool("pinecone")
		batch, _ := cmd.Flags().GetInt("batch")

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		entries, err := mcq.ReadBankCSV(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		cfg, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		embedder, err := mcq.NewEmbedder(cfg.Embedding)
		if err != nil {
			return err
		}
		if embedder == nil {
			return errors.New("EMBEDDING_PROVIDER is not set; bank rows need embeddings to be searchable")
		}

		ctx := cmd.Context()
		importer := mcq.NewImporter(mcq.NewStore(db), embedder, nil, batch)
		if usePinecone {
			index, err := mcq.NewPineconeIndex(ctx, cfg.Pinecone)
			if err != nil {
				return err
			}
			defer index.Close()
			importer = mcq.NewImporter(mcq.NewStore(db), embedder, index, batch)
		}

		n, err := importer.Import(ctx, entries)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d questions\n", n, len(entries))
		return err
	},
}

var bankCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of bank questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := mcq.NewStore(db).Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	bankImportCmd.Flags().String("file", "", "Path to the bank CSV")
	bankImportCmd.Flags().Bool("pinecone", false, "Also upsert vectors to the configured Pinecone index")
	bankImportCmd.Flags().Int("batch", 64, "Rows embedded per request")
	_ = bankImportCmd.MarkFlagRequired("file")
	bankCmd.AddCommand(bankImportCmd, bankCountCmd)
}
