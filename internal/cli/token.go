package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Выпустить access-токен (для отладки и сервисных клиентов)",
	Long: `Выпустить access-токен, подписанный JWT_SECRET.

Примеры:
  jobctl token 6f1c2d8e-4b7a-4c1e-9f3d-2a5b8c7d9e01 --role admin
  jobctl token 6f1c2d8e-4b7a-4c1e-9f3d-2a5b8c7d9e01 --role installer --ttl 1h`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noDatabaseAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("неверный идентификатор пользователя: %w", err)
		}
		switch tokenRole {
		case models.RoleJobGiver, models.RoleInstaller, models.RoleAdmin:
		default:
			return fmt.Errorf("неизвестная роль %q", tokenRole)
		}

		token, err := service.NewTokenManager(cfg.JWTSecret, tokenTTL).Issue(userID, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", models.RoleAdmin, "роль: job_giver, installer или admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 15*time.Minute, "срок действия")
}
