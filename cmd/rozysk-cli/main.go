// Command rozysk-cli обрабатывает выгрузки розыска локально, без HTTP-сервиса.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	lexiconPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rozysk-cli",
		Short: "Очистка адресов, извлечение номеров и нарезка выгрузок розыска авто",
		Long: `rozysk-cli обрабатывает CSV/XLSX выгрузки так же, как сервис:
извлекает номерной знак из "ДАННЫЕ АВТО", очищает адреса, отбрасывает
адреса за пределами Москвы и области и режет результат на части для
импорта в карты.

Примеры:
  rozysk-cli process выгрузка.xlsx --out parts
  rozysk-cli process a.csv b.csv --out parts --size 1000 --address-type Проживание
  rozysk-cli classify "г. Новосибирск, ул. Ленина, д. 1"
  rozysk-cli plate "Toyota Camry A123BC77 white"`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "подробный лог")
	root.PersistentFlags().StringVar(&lexiconPath, "lexicon", "", "YAML-справочник топонимов вместо встроенного")

	root.AddCommand(newProcessCmd(), newClassifyCmd(), newPlateCmd())
	return root
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
