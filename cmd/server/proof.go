package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"badgeissuer/internal/proof"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/middleware/admin"
)

func proofCommand() *cobra.Command {
	var (
		caller string
		proofs []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Sign a caller proof token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := domain.ParseAccountAddress(caller)
			if err != nil {
				return err
			}
			resources := make([]domain.ResourceAddress, 0, len(proofs))
			for _, raw := range proofs {
				r, err := domain.ParseResourceAddress(raw)
				if err != nil {
					return err
				}
				resources = append(resources, r)
			}
			if ttl <= 0 {
				ttl = cfg.ProofTTL
			}
			token, expiresAt, err := proof.NewService(cfg.ProofSigningKey, programName).Issue(acct, resources, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.ErrOrStderr(), "expires at", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "caller account address")
	cmd.Flags().StringSliceVar(&proofs, "proof", nil, "resource address the caller holds (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to proofTTL)")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func hashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-token <token>",
		Short: "Print the bcrypt hash to configure as adminTokenHash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}
