package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docchat/src/core/chat"
	"docchat/src/core/chunk"
	"docchat/src/infrastructure/integrations/ollama"
	"docchat/src/storage/memoryindex"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <file>...",
	Short: "Chat with documents from the terminal",
	Long: `The chat command indexes the given documents in memory and starts
an interactive question loop against them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("credential", "c", "", "API credential for the LLM backend")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	credential, _ := cmd.Flags().GetString("credential")
	if credential == "" {
		credential = os.Getenv("LLM_CREDENTIAL")
	}
	for credential == "" {
		fmt.Print("Enter your API credential: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read credential: %w", err)
		}
		credential = strings.TrimSpace(line)
	}

	timeout, err := time.ParseDuration(viper.GetString("llm.timeout"))
	if err != nil {
		timeout = 120 * time.Second
	}
	llmClient := ollama.NewClient(viper.GetString("llm.url"), &http.Client{
		Timeout: timeout,
	})
	provider := ollama.NewProvider(
		llmClient,
		viper.GetString("llm.embedding_model"),
		viper.GetString("llm.generation_model"),
	)

	splitter := chunk.NewSplitter(
		chunk.WithSize(viper.GetInt("chunk.size")),
		chunk.WithOverlap(viper.GetInt("chunk.overlap")),
	)
	service := chat.NewService(
		memoryindex.NewBuilder(provider),
		provider,
		chat.WithSplitter(splitter),
		chat.WithTopK(viper.GetInt("chat.top_k")),
	)

	session := service.CreateSession()
	if err := service.SetCredential(session.ID, credential); err != nil {
		return err
	}

	// Read the documents from disk
	bar := progressbar.Default(int64(len(args)), "reading documents")
	files := make([]chat.UploadFile, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, chat.UploadFile{
			Filename: filepath.Base(path),
			Content:  content,
		})
		bar.Add(1)
	}

	fmt.Println("Indexing documents...")
	result, err := service.UploadDocuments(ctx, session.ID, files)
	if err != nil {
		return fmt.Errorf("failed to index documents: %w", err)
	}
	for _, skipped := range result.Skipped {
		fmt.Printf("Skipped %s: unsupported file type\n", skipped)
	}
	fmt.Printf("Indexed %d documents into %d chunks.\n", len(result.Indexed), result.Chunks)
	fmt.Println("Ask a question, or type 'exit' to quit.")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		turn, err := service.Ask(ctx, session.ID, question)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Println(turn.Answer)
	}
}
