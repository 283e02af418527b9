package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cartapp "github.com/bookmart/storefront/internal/application/cart"
	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/infrastructure/auth"
	"github.com/bookmart/storefront/internal/infrastructure/config"
	"github.com/bookmart/storefront/internal/infrastructure/localstore"
	"github.com/bookmart/storefront/internal/infrastructure/logger"
	"github.com/bookmart/storefront/internal/infrastructure/remote"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired storefront client shared by every subcommand
type app struct {
	logger  *zap.Logger
	engine  *cartapp.Engine
	session *auth.SessionManager
	catalog *remote.CatalogClient
	orders  *remote.OrderClient
}

func rootCmd() *cobra.Command {
	var a *app

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Book storefront client",
		Long: `Storefront is a client for the bookmart REST API.

Browse the catalog and manage a cart as a guest; logging in merges the
guest cart into your server cart. Run without a subcommand for an
interactive shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil {
				return nil
			}
			var err error
			a, err = newApp(cmd.Context())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "browse [category]",
			Short: "List books, optionally filtered by category",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				category := ""
				if len(args) > 0 {
					category = args[0]
				}
				return a.browse(cmd.Context(), category)
			},
		},
		&cobra.Command{
			Use:   "categories",
			Short: "List catalog categories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.categories(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "show <book-id>",
			Short: "Show one book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.show(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "add <book-id> [quantity]",
			Short: "Add a book to the cart",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.add(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:   "cart",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.printCart()
				return nil
			},
		},
		&cobra.Command{
			Use:   "update <book-id> <quantity>",
			Short: "Change a line quantity (0 removes)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				return a.engine.UpdateQuantity(cmd.Context(), args[0], quantity)
			},
		},
		&cobra.Command{
			Use:   "remove <book-id>",
			Short: "Remove a line from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.engine.RemoveFromCart(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.engine.ClearCart(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "total",
			Short: "Show the cart total",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Println("Total:", a.engine.TotalString())
				return nil
			},
		},
		&cobra.Command{
			Use:   "login <email> <password>",
			Short: "Sign in (merges the guest cart)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.session.Login(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.session.Logout(cmd.Context())
				return nil
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the current identity",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Println(a.session.Identity())
				return nil
			},
		},
		&cobra.Command{
			Use:   "checkout",
			Short: "Place an order from the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.checkout(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "orders",
			Short: "List past orders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.listOrders(cmd.Context())
			},
		},
	)

	return cmd
}

// newApp wires config, logger, storage, remote clients, session and engine
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info("Starting storefront client",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("api", cfg.API.BaseURL),
	)

	// Local blob store for the guest cart and the session token
	blobs, err := localstore.NewFactory(cfg.Storage, localstore.WithLogger(log)).CreateStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	cartStore := localstore.NewCartStore(blobs, localstore.WithCartLogger(log))

	// The API client needs the session's token and the session needs the
	// API client's login endpoint; the token source closes over the
	// session variable to break the cycle.
	var session *auth.SessionManager
	api := remote.NewClient(cfg.API,
		remote.WithLogger(log),
		remote.WithTokenSource(func() string {
			if session == nil {
				return ""
			}
			return session.Token()
		}),
		remote.WithUnauthorizedHandler(func() {
			if session != nil {
				session.Teardown()
			}
		}),
	)
	session = auth.NewSessionManager(blobs, remote.NewAuthClient(api), auth.WithLogger(log))

	engine := cartapp.NewEngine(cartStore, remote.NewCartClient(api), cartapp.WithLogger(log))

	// On login the guest cart merges into the server cart before the
	// engine switches over; a failed merge keeps the guest cart for a
	// later retry and the session stays logged in.
	session.OnChange(func(identity cart.Identity) {
		ctx := context.Background()
		if userID, ok := identity.UserID(); ok {
			if err := engine.MigrateGuestCart(ctx, userID); err != nil {
				fmt.Println("Your guest cart could not be merged; it is kept for the next login.")
			}
		}
		if err := engine.SetIdentity(ctx, identity); err != nil {
			fmt.Println("Failed to load your cart:", err)
		}
	})

	session.Restore(ctx)
	if session.Identity().IsGuest() {
		if err := engine.SetIdentity(ctx, cart.Guest()); err != nil {
			log.Warn("initial cart load failed", zap.Error(err))
		}
	}

	return &app{
		logger:  log,
		engine:  engine,
		session: session,
		catalog: remote.NewCatalogClient(api),
		orders:  remote.NewOrderClient(api),
	}, nil
}

// shell runs the root command interactively, one line per invocation
func (a *app) shell(root *cobra.Command) error {
	fmt.Println("bookmart storefront — type 'help' for commands, 'quit' to leave")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", a.prompt())
		if !scanner.Scan() {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}

		// a bare or unknown first word would re-enter this shell
		target, _, err := root.Find(fields)
		if err != nil || target == root {
			fmt.Printf("unknown command %q, try 'help'\n", fields[0])
			continue
		}

		root.SetArgs(fields)
		if err := root.Execute(); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (a *app) prompt() string {
	if userID, ok := a.session.CurrentUserID(); ok {
		return userID
	}
	return "guest"
}

func (a *app) browse(ctx context.Context, category string) error {
	books, err := a.catalog.ListBooks(ctx, category)
	if err != nil {
		return err
	}
	for _, b := range books {
		fmt.Printf("  %-12s %-40s %-20s %8s\n", b.ID, b.Title, b.Author, b.Price.StringFixed(2))
	}
	return nil
}

func (a *app) categories(ctx context.Context) error {
	categories, err := a.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Println(" ", c.Name)
	}
	return nil
}

func (a *app) show(ctx context.Context, bookID string) error {
	book, err := a.catalog.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  by %s\n  category: %s\n  price: %s\n", book.Title, book.Author, book.Category, book.Price.StringFixed(2))
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	quantity := 1
	if len(args) > 1 {
		q, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		quantity = q
	}

	book, err := a.catalog.GetBook(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.engine.AddToCart(ctx, book, quantity); err != nil {
		return err
	}
	fmt.Printf("added %q\n", book.Title)
	return nil
}

func (a *app) printCart() {
	snap := a.engine.State()
	if snap.Lines.IsEmpty() {
		fmt.Println("cart is empty")
		return
	}
	for _, line := range snap.Lines {
		fmt.Printf("  %-12s %-40s x%-3d %8s\n", line.BookID, line.Title, line.Quantity, line.Subtotal().StringFixed(2))
	}
	fmt.Println("  total:", snap.Total().StringFixed(2))
}

func (a *app) checkout(ctx context.Context) error {
	userID, ok := a.session.CurrentUserID()
	if !ok {
		return fmt.Errorf("login before checking out")
	}
	lines := a.engine.State().Lines
	if lines.IsEmpty() {
		return fmt.Errorf("cart is empty")
	}

	order, err := a.orders.PlaceOrder(ctx, userID, lines)
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed, total %s\n", order.ID, order.Total.StringFixed(2))
	// show the now empty server cart
	return a.engine.SetIdentity(ctx, a.session.Identity())
}

func (a *app) listOrders(ctx context.Context) error {
	userID, ok := a.session.CurrentUserID()
	if !ok {
		return fmt.Errorf("login to see your orders")
	}
	orders, err := a.orders.ListOrders(ctx, userID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("no orders yet")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("  %s  %s  %8s  %s\n", o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Total.StringFixed(2), o.Status)
	}
	return nil
}
