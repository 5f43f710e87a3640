package cli

import (
	"coined-client/internal/notify"
	"coined-client/internal/session"
	"github.com/spf13/cobra"
)

func newShopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Shop catalog and purchases",
	}
	cmd.AddCommand(newShopListCmd())
	cmd.AddCommand(newShopAddCmd())
	cmd.AddCommand(newShopRmCmd())
	cmd.AddCommand(newShopBuyCmd())
	return cmd
}

func newShopListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shop items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			items, state := a.store.ShopItems()
			if state != session.Loaded {
				cmd.Println("shop not loaded")
				return nil
			}
			for _, it := range items {
				cmd.Printf("%s\t%s %s\t%d coins\t%s\n", it.ID, it.Emoji, it.Name, it.Cost, it.Category)
			}
			return nil
		},
	}
}

func newShopAddCmd() *cobra.Command {
	var in session.NewShopItemInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a shop item (teacher)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			item, err := a.store.AddShopItem(cmd.Context(), in)
			if err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, item.Name+" added to shop", notify.Success)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "item name")
	cmd.Flags().IntVar(&in.Cost, "cost", 0, "price in coins")
	cmd.Flags().StringVar(&in.Category, "category", "", "item category")
	cmd.Flags().StringVar(&in.Emoji, "emoji", "", "display emoji")
	cmd.Flags().StringVar(&in.Tag, "tag", "", "badge tag")
	cmd.Flags().StringVar(&in.Desc, "desc", "", "description")
	return cmd
}

func newShopRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <item-id>",
		Short: "Remove a shop item (teacher)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			if err := a.store.RemoveShopItem(cmd.Context(), args[0]); err != nil {
				a.toast(cmd, err.Error(), notify.Error)
				return err
			}
			a.toast(cmd, "Item removed", notify.Success)
			return nil
		},
	}
}

func newShopBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Spend coins on a shop item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := restoreAndLoad(cmd, a); err != nil {
				return err
			}
			items, state := a.store.ShopItems()
			if state != session.Loaded {
				cmd.Println("shop not loaded")
				return nil
			}
			for _, it := range items {
				if it.ID != args[0] {
					continue
				}
				if a.store.Spend(cmd.Context(), it.Cost, it.Name) {
					a.toast(cmd, "Purchased: "+it.Name, notify.Success)
				} else {
					a.toast(cmd, "Not enough coins!", notify.Error)
				}
				return nil
			}
			cmd.Println("item not found")
			return nil
		},
	}
}
