package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"llamactl/internal/llmclient"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		nPredict int
		temp     float64
		topP     float64
		topK     int
		seed     int64
	)
	cmd := &cobra.Command{
		Use:     "run <slug> <prompt...>",
		Short:   "Generate a completion for a prompt",
		Example: "  llamactl run qwen-math \"What is 17*23?\"",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.ensureAndClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := cli.Completion(cmd.Context(), llmclient.CompletionRequest{
				Prompt:      joinedArgs(args[1:]),
				NPredict:    nPredict,
				Temperature: temp,
				TopP:        topP,
				TopK:        topK,
				Seed:        seed,
			})
			if err != nil {
				return err
			}
			fmt.Println(out.Content)
			return nil
		},
	}
	cmd.Flags().IntVarP(&nPredict, "n-predict", "n", 0, "Maximum tokens to generate (0 = server default)")
	cmd.Flags().Float64Var(&temp, "temp", 0, "Sampling temperature")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "Nucleus sampling probability")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Top-K sampling")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = server default)")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var system string
	cmd := &cobra.Command{
		Use:   "chat <slug> <message...>",
		Short: "Send one chat turn and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.ensureAndClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var msgs []llmclient.ChatMessage
			if system != "" {
				msgs = append(msgs, llmclient.ChatMessage{Role: "system", Content: system})
			}
			msgs = append(msgs, llmclient.ChatMessage{Role: "user", Content: joinedArgs(args[1:])})
			out, err := cli.Chat(cmd.Context(), llmclient.ChatRequest{Messages: msgs})
			if err != nil {
				return err
			}
			fmt.Println(out.Content())
			return nil
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "System prompt")
	return cmd
}

func newEmbedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <slug> <text...>",
		Short: "Compute an embedding vector for text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.ensureAndClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			vec, err := cli.Embedding(cmd.Context(), joinedArgs(args[1:]))
			if err != nil {
				return err
			}
			parts := make([]string, len(vec))
			for i, v := range vec {
				parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			fmt.Printf("[%s]\n", strings.Join(parts, ", "))
			return nil
		},
	}
}

func newTokenizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <slug> <text...>",
		Short: "Tokenize text into token ids",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.ensureAndClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			toks, err := cli.Tokenize(cmd.Context(), joinedArgs(args[1:]))
			if err != nil {
				return err
			}
			parts := make([]string, len(toks))
			for i, t := range toks {
				parts[i] = strconv.Itoa(t)
			}
			fmt.Println(strings.Join(parts, " "))
			return nil
		},
	}
}

func newDetokenizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detokenize <slug> <token-id...>",
		Short: "Convert token ids back into text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toks := make([]int, 0, len(args)-1)
			for _, s := range args[1:] {
				n, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("not a token id: %q", s)
				}
				toks = append(toks, n)
			}
			cli, err := a.ensureAndClient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := cli.Detokenize(cmd.Context(), toks)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the active server's health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(body)
			return nil
		},
	}
}

func newPropsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props",
		Short: "Query the active server's properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.client().Props(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
}
