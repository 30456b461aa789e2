package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/blob"
	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/imageprompt"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/store"
	"github.com/abhisek/quizgen/internal/upload"
)

const defaultPublicURL = "http://localhost:8080/blobs"

// deps is everything a generation command needs.
type deps struct {
	store    *store.Store
	blobs    *blob.FileStore
	images   *imagegen.Router
	uploader *upload.Uploader

	// drafter is nil when no LLM provider is configured.
	drafter *imageprompt.Drafter
}

func (d *deps) Close() error {
	return d.store.Close()
}

// buildDeps opens the store and wires the generation pipeline.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(cmd)
	if err != nil {
		st.Close()
		return nil, err
	}

	events := st.EventRepo()
	factory := imagegen.Factory(imagegen.ConfigFromEnv(), events, logger)
	batch := imagegen.NewBatchGenerator(imagegen.DefaultProviderConfigs(), factory, logger)

	d := &deps{
		store:    st,
		blobs:    blobs,
		images:   imagegen.NewRouter(batch),
		uploader: upload.New(blobs, logger),
	}

	provider, err := llm.NewProviderFromEnv(cmd.Context(), events, logger)
	if err != nil {
		logger.Warn("LLM provider not configured, prompt drafting unavailable", zap.Error(err))
	} else {
		d.drafter = imageprompt.New(provider, logger)
	}

	return d, nil
}

// openBlobStore resolves the blob directory from --blob-dir, QUIZGEN_BLOB_DIR,
// or a blobs directory next to the database.
func openBlobStore(cmd *cobra.Command) (*blob.FileStore, error) {
	dir, _ := cmd.Flags().GetString("blob-dir")
	if dir == "" {
		dir = os.Getenv("QUIZGEN_BLOB_DIR")
	}
	if dir == "" {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dir = filepath.Join(filepath.Dir(dbPath), "blobs")
	}

	publicURL, _ := cmd.Flags().GetString("public-url")
	if publicURL == "" {
		publicURL = os.Getenv("QUIZGEN_PUBLIC_URL")
	}
	if publicURL == "" {
		publicURL = defaultPublicURL
	}

	return blob.NewFileStore(dir, publicURL)
}
