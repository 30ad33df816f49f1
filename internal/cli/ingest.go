package cli

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/pipeline"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ingest 命令 - 提取文件文本并切块入库
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Extract, chunk and index files",
	Long:  "Extract text from each file, split it into overlapping chunks and index them. Re-ingesting a file replaces its chunks.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var (
	docIDFlag string
	chunkSize int
	overlap   int
)

func init() {
	ingestCmd.Flags().StringVar(&docIDFlag, "doc-id", "", "Document id (single file only, defaults to one derived from the path)")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk size in characters (0 uses config)")
	ingestCmd.Flags().IntVar(&overlap, "overlap", 0, "Characters shared between consecutive chunks (0 uses config unless --chunk-size is set)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if docIDFlag != "" && len(args) > 1 {
		return fmt.Errorf("--doc-id can only be used with a single file")
	}
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	size, ov := config.Conf.Ingestion.ChunkParams(chunkSize, overlap)

	failed := 0
	for _, path := range args {
		docID := docIDFlag
		if docID == "" {
			docID = pipeline.DocIDFromPath(filepath.Clean(path))
		}
		n, err := ingestOne(cmd, a, docID, path, size, ov)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s (doc_id=%s, %d chunk(s) written): %v\n", path, docID, n, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s (%d chunk(s))\n", path, docID, n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

func ingestOne(cmd *cobra.Command, a *app, docID, path string, size, ov int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return a.processor.IngestReader(cmd.Context(), docID, path, filepath.Base(path), f, size, ov)
}
