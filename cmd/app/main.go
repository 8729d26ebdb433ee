// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/vaultcore/vaultcore/cmd/app/commands"
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Encrypted credential vault and connection manager",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP API and metrics servers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "generate-master-key",
				Usage: "Generate a new 256-bit master key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kms-key-uri",
						Aliases: []string{"k"},
						Value:   "",
						Usage:   "KMS keeper URI used to wrap the key (e.g., gcpkms://..., base64key://...)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateMasterKey(
						ctx,
						vaultService.NewKMSService(),
						os.Stdout,
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "rotate-key",
				Usage: "Bump the key version for a key id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Key id to rotate",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateKey(ctx, os.Stdout, cmd.String("id"))
				},
			},
			{
				Name:  "encrypt",
				Usage: "Encrypt data under a key id and print the package",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Key id (defaults to the vault's default key)",
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Plaintext to encrypt",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunEncrypt(ctx, os.Stdout, cmd.String("id"), cmd.String("data"))
				},
			},
			{
				Name:  "decrypt",
				Usage: "Decrypt an encoded package and print the plaintext",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "package",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Encoded package produced by encrypt",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDecrypt(ctx, os.Stdout, cmd.String("package"))
				},
			},
			{
				Name:  "store-credentials",
				Usage: "Encrypt and store credentials for a connection id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Connection id",
					},
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "Username to store",
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Password to store",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunStoreCredentials(
						ctx,
						os.Stdout,
						cmd.String("id"),
						cmd.String("username"),
						cmd.String("password"),
					)
				},
			},
			{
				Name:  "retrieve-credentials",
				Usage: "Decrypt and print stored credentials for a connection id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Connection id",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRetrieveCredentials(ctx, os.Stdout, cmd.String("id"))
				},
			},
			{
				Name:  "delete-credentials",
				Usage: "Remove stored credentials for a connection id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Connection id",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDeleteCredentials(ctx, os.Stdout, cmd.String("id"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
