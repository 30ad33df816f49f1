package cli

import (
	"aegis-rag-go/internal/config"
	"fmt"

	"github.com/spf13/cobra"
)

// ask 命令 - 检索增强问答
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var (
	topK   int
	stream bool
)

func init() {
	askCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks used as context (0 uses config)")
	askCmd.Flags().BoolVar(&stream, "stream", false, "Print the answer as it is generated")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	k := topK
	if k <= 0 {
		k = config.Conf.Retrieval.TopK
	}

	out := cmd.OutOrStdout()
	if !stream {
		fmt.Fprintln(out, a.chat.GenerateAnswer(cmd.Context(), args[0], k))
		return nil
	}
	for fragment := range a.chat.StreamAnswer(cmd.Context(), args[0], k) {
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return nil
}
