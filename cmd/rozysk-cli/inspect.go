package main

import (
	"github.com/spf13/cobra"

	"rozysk-service/internal/address"
	"rozysk-service/internal/plate"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify ADDRESS...",
		Short: "Показать очищенный адрес и вердикт по региону",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex, err := loadLexicon(lexiconPath)
			if err != nil {
				return err
			}
			normalizer := address.NewNormalizer(lex)
			classifier := address.NewClassifier(lex)

			for _, raw := range args {
				stripped := normalizer.Strip(raw)
				verdict := "local"
				if classifier.IsDistant(stripped) {
					verdict = "distant"
				}
				printf(cmd, "%s\t%s\n", verdict, normalizer.Normalize(raw))
			}
			return nil
		},
	}
}

func newPlateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plate TEXT...",
		Short: "Извлечь номерной знак из текста",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor := plate.NewExtractor()
			for _, text := range args {
				res := extractor.Extract(text)
				printf(cmd, "%s\t%s\n", res.Plate, res.Residual)
			}
			return nil
		},
	}
}
