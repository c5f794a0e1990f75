package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/reaction"
)

func newReactCmd() *cobra.Command {
	reactCmd := &cobra.Command{
		Use:   "react",
		Short: "Like or dislike a review",
	}

	press := func(kind reaction.Kind) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			toggler := reaction.NewToggler(newClient(), reaction.WithMetrics(newMetrics()))
			res := toggler.Press(cmd.Context(), args[0], kind)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Printf("review %s: %s (likes: %d, dislikes: %d)\n",
				res.State.ReviewID, res.State.UserReaction,
				res.State.Stats.Likes, res.State.Stats.Dislikes)
			return nil
		}
	}

	reactCmd.AddCommand(&cobra.Command{
		Use:   "like <review-id>",
		Short: "Toggle a like on a review",
		Args:  cobra.ExactArgs(1),
		RunE:  press(reaction.Like),
	})

	reactCmd.AddCommand(&cobra.Command{
		Use:   "dislike <review-id>",
		Short: "Toggle a dislike on a review",
		Args:  cobra.ExactArgs(1),
		RunE:  press(reaction.Dislike),
	})

	return reactCmd
}
