package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaenox/lisa-bot/internal/finetune"
)

func newFinetuneCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "finetune",
		Short: "Fine-tune the generator on rated examples and save the model artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ft := e.cfg.Finetune
			trainer := finetune.NewOpenAITrainer(finetune.OpenAIConfig{
				APIKey:       e.cfg.OpenAI.APIKey,
				BaseURL:      e.cfg.OpenAI.BaseURL,
				PollInterval: ft.PollInterval,
				Suffix:       ft.Suffix,
			}, e.logger)

			pipeline := finetune.New(e.store, trainer, finetune.Config{
				ArtifactPath: ft.ArtifactPath,
				BaseModel:    ft.BaseModel,
				Epochs:       ft.Epochs,
				BatchSize:    ft.BatchSize,
				MaxTokens:    ft.MaxTokens,
			}, e.logger)

			if dryRun {
				pairs, err := pipeline.Pairs(cmd.Context())
				if err != nil {
					return err
				}
				data, err := finetune.EncodeJSONL(pairs)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			artifact, err := pipeline.Run(cmd.Context())
			if errors.Is(err, finetune.ErrNoTrainingData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No training data available.")
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model %s trained on %d pairs, saved to %s\n",
				artifact.Model, artifact.TrainingPairs, ft.ArtifactPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the training JSONL instead of training")
	return cmd
}
