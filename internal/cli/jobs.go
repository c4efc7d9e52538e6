package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var expireOfferCmd = &cobra.Command{
	Use:   "expire-offer <job-id>",
	Short: "Снять просроченное предложение и передать заказ следующему кандидату",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("неверный идентификатор заказа: %w", err)
		}
		outcome, err := services.Jobs.ExpireOffer(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", jobID, outcome)
		return nil
	},
}

var verifyInstallerCmd = &cobra.Command{
	Use:   "verify-installer <user-id>",
	Short: "Отметить установщика проверенным",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("неверный идентификатор пользователя: %w", err)
		}
		profile, err := services.Reputation.VerifyInstaller(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s проверен, основатель: %t\n", userID, profile.IsFoundingInstaller)
		return nil
	},
}
