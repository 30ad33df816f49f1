package cli

import (
	"aegis-rag-go/internal/model"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// search 命令 - 全文检索
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

// chunks 命令 - 列出已入库的分块
var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "List indexed chunks",
	Args:  cobra.NoArgs,
	RunE:  runChunks,
}

var (
	numResults  int
	fullContent bool
)

func init() {
	searchCmd.Flags().IntVarP(&numResults, "num", "n", 5, "Number of results")
	searchCmd.Flags().BoolVar(&fullContent, "full", false, "Show full content")
	chunksCmd.Flags().IntVarP(&numResults, "num", "n", 5, "Number of chunks")
	chunksCmd.Flags().BoolVar(&fullContent, "full", false, "Show full content")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	hits, err := a.search.Search(cmd.Context(), args[0], numResults)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d result(s)\n\n", len(hits))
	printHits(cmd.OutOrStdout(), hits, fullContent)
	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	hits, err := a.search.ListChunks(cmd.Context(), numResults)
	if err != nil {
		return fmt.Errorf("list chunks failed: %w", err)
	}
	printHits(cmd.OutOrStdout(), hits, fullContent)
	return nil
}

// printHits 以文本形式输出检索结果，默认只显示高亮片段或内容前 200 个字符。
func printHits(w io.Writer, hits []model.RetrievalHit, full bool) {
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s  [%s %d/%d]  score=%.3f\n", i+1, h.ID, h.Meta.Source, h.Meta.ChunkID+1, h.Meta.TotalChunks, h.Score)
		switch {
		case full:
			fmt.Fprintln(w, h.Content)
		case len(h.Highlights) > 0:
			fmt.Fprintln(w, strings.Join(h.Highlights, " ... "))
		default:
			fmt.Fprintln(w, preview(h.Content, 200))
		}
		fmt.Fprintln(w)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
