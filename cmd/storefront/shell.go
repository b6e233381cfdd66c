package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/platform/di"
)

const callTimeout = 30 * time.Second

var errNotSignedIn = errors.New("not signed in (login <email> <password>)")

// shell maps one input line to a command against the device.
type shell struct {
	ctx context.Context
	dev *di.Device
	out io.Writer
}

func newShell(ctx context.Context, dev *di.Device, out io.Writer) *shell {
	dev.Products.LoadAllProducts()
	return &shell{ctx: ctx, dev: dev, out: out}
}

// exec builds a fresh command tree per line so flags never leak between lines.
func (s *shell) exec(args []string) error {
	root := &cobra.Command{Use: "", SilenceUsage: true, SilenceErrors: true}
	root.SetOut(s.out)
	root.SetErr(s.out)
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		s.loginCmd(), s.logoutCmd(), s.signupCmd(), s.resetCmd(), s.whoamiCmd(),
		s.productsCmd(), s.addCmd(), s.cartCmd(), s.qtyCmd(), s.rmCmd(), s.clearCmd(), s.checkoutCmd(),
	)
	root.SetArgs(args)
	return root.ExecuteContext(s.ctx)
}

// wait blocks until a view-model callback delivers its result.
func wait[T any](ctx context.Context, op func(cb func(common.Result[T]))) (common.Result[T], error) {
	ch := make(chan common.Result[T], 1)
	op(func(r common.Result[T]) { ch <- r })
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	select {
	case r := <-ch:
		if !r.OK() {
			return r, errors.New(r.Message)
		}
		return r, nil
	case <-ctx.Done():
		var zero common.Result[T]
		return zero, ctx.Err()
	}
}

func (s *shell) userID() (string, error) {
	uid := s.dev.Sessions.UserID()
	if uid == "" {
		return "", errNotSignedIn
	}
	return uid, nil
}

func (s *shell) loginCmd() *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := wait(cmd.Context(), func(cb func(common.Result[userdom.Session])) {
				s.dev.User.Login(args[0], args[1], remember, cb)
			})
			if err != nil {
				return err
			}
			s.dev.User.LoadUser(r.Payload.UserID)
			s.dev.Cart.LoadCart(r.Payload.UserID)
			fmt.Fprintf(s.out, "%s (%s)\n", r.Message, r.Payload.Email)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "remember the email on this device")
	return cmd
}

func (s *shell) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and stop live updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := wait(cmd.Context(), s.dev.User.Logout)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) signupCmd() *cobra.Command {
	var profile userdom.User
	cmd := &cobra.Command{
		Use:   "signup <email> <password>",
		Short: "Create an account and its profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := wait(cmd.Context(), func(cb func(common.Result[string])) {
				s.dev.User.SignUp(args[0], args[1], profile, cb)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s (uid %s)\n", r.Message, r.Payload)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&profile.FirstName, "first", "", "first name")
	f.StringVar(&profile.LastName, "last", "", "last name")
	f.StringVar(&profile.Gender, "gender", "", "gender")
	f.StringVar(&profile.DOB, "dob", "", "date of birth")
	f.StringVar(&profile.Country, "country", "", "country")
	return cmd
}

func (s *shell) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <email>",
		Short: "Send a password reset mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := wait(cmd.Context(), func(cb func(common.Result[common.Empty])) {
				s.dev.User.ForgetPassword(args[0], cb)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cur := s.dev.User.CurrentUser()
			if cur == nil {
				return errNotSignedIn
			}
			fmt.Fprintf(s.out, "%s <%s> since %s\n", cur.UserID, cur.Email, cur.StartedAt.Format(time.RFC3339))
			if u := s.dev.User.User.Get(); u != nil && u.FullName() != "" {
				fmt.Fprintln(s.out, u.FullName())
			}
			return nil
		},
	}
}

func (s *shell) productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE")
			for _, p := range s.dev.Products.AllProducts.Get() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func (s *shell) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <productId> [qty]",
		Short: "Put a product in the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := s.userID()
			if err != nil {
				return err
			}
			qty := cart.MinQuantity
			if len(args) == 2 {
				if qty, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("qty: %w", err)
				}
			}
			var item cart.Item
			found := false
			for _, p := range s.dev.Products.AllProducts.Get() {
				if p.ID == args[0] {
					if item, err = cart.NewItem(p, uid, qty); err != nil {
						return err
					}
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("no product %q", args[0])
			}
			r, err := wait(cmd.Context(), func(cb func(common.Result[cart.Item])) { s.dev.Cart.AddCartItem(item, cb) })
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) cartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the cart and its total",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := s.userID(); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tLINE")
			for _, it := range s.dev.Cart.Items.Get() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.ProductID, it.ProductName, it.Quantity, it.LineTotal().StringFixed(2))
			}
			sum := s.dev.Cart.Summary()
			fmt.Fprintf(tw, "\t\tsubtotal\t%s\n\t\tshipping\t%s\n\t\ttotal\t%s\n",
				sum.Subtotal.StringFixed(2), sum.Shipping.StringFixed(2), sum.Total.StringFixed(2))
			return tw.Flush()
		},
	}
}

func (s *shell) qtyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qty <productId> <n>",
		Short: "Change the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := s.userID()
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("n: %w", err)
			}
			r, err := wait(cmd.Context(), func(cb func(common.Result[common.Empty])) {
				s.dev.Cart.UpdateCartItemQuantity(args[0], uid, n, cb)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <productId>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := s.userID()
			if err != nil {
				return err
			}
			r, err := wait(cmd.Context(), func(cb func(common.Result[common.Empty])) {
				s.dev.Cart.RemoveCartItem(args[0], uid, cb)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := s.userID()
			if err != nil {
				return err
			}
			r, err := wait(cmd.Context(), func(cb func(common.Result[common.Empty])) { s.dev.Cart.ClearCart(uid, cb) })
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, r.Message)
			return nil
		},
	}
}

func (s *shell) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := s.userID()
			if err != nil {
				return err
			}
			r := s.dev.Checkout.PlaceOrder(cmd.Context(), uid)
			if !r.OK() {
				return errors.New(r.Message)
			}
			fmt.Fprintf(s.out, "%s: order %s, total %s\n", r.Message, r.Payload.OrderID, r.Payload.Summary.Total.StringFixed(2))
			return nil
		},
	}
}
