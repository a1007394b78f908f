package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pocketchef/internal/api"
	"pocketchef/internal/app"
	"pocketchef/internal/config"
	"pocketchef/internal/database"
	"pocketchef/internal/email"
	"pocketchef/internal/favorites"
	"pocketchef/internal/handlers"
	"pocketchef/internal/imageurl"
	"pocketchef/internal/logger"
	"pocketchef/internal/recipes"
	"pocketchef/internal/session"
	"pocketchef/internal/textview"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// runtime is what every command works against once the root has set it up.
type runtime struct {
	configPath string
	apiURL     string
	verbose    bool

	cfg  *config.Config
	db   *sql.DB
	chef *app.App
}

func (rt *runtime) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pocketchef",
		Short: "Pocket Chef - browse, share and save recipes",
		Long: `Pocket Chef is a client for a recipe-sharing server.

Run without a command to serve the web front on the configured port, or use
the commands below from the terminal. Session and favorites are kept in a
local SQLite file and shared between both.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "Config file (default: $POCKETCHEF_CONFIG or pocketchef.yaml)")
	root.PersistentFlags().StringVar(&rt.apiURL, "api", "", "Recipe server base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		rt.serveCmd(),
		rt.recipesCmd(),
		rt.showCmd(),
		rt.loginCmd(),
		rt.registerCmd(),
		rt.logoutCmd(),
		rt.whoamiCmd(),
		rt.favoriteCmd(),
		rt.likeCmd(),
		rt.commentsCmd(),
		rt.commentCmd(),
		rt.shareCmd(),
	)
	return root
}

// execute runs one command line against rt and releases whatever setup
// opened, also when the command fails.
func execute(ctx context.Context, rt *runtime, args []string, out io.Writer) error {
	defer rt.close()

	cmd := rt.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, &runtime{}, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (rt *runtime) setup(ctx context.Context) error {
	var err error
	if rt.configPath != "" {
		rt.cfg, err = config.LoadFrom(rt.configPath)
	} else {
		rt.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if rt.apiURL != "" {
		rt.cfg.APIBaseURL = strings.TrimRight(rt.apiURL, "/")
	}

	level := logger.ParseLevel(rt.cfg.LogLevel)
	if rt.verbose {
		level = logger.DEBUG
	}
	logger.Initialize(level, rt.cfg.IsDevelopment())
	logger.SetLevel(level)

	rt.db, err = database.Initialize(rt.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(rt.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	mailer := email.NewService(rt.cfg)
	if mailer.IsEnabled() {
		logger.Info("Email sharing enabled with Mailgun", "domain", rt.cfg.MailgunDomain)
	} else {
		logger.Debug("Email sharing disabled - Mailgun not configured")
	}

	kv := database.NewKV(rt.db)
	rt.chef = app.New(app.Options{
		Gateway:          api.NewClient(rt.cfg.APIBaseURL, api.WithTimeout(rt.cfg.RequestTimeout)),
		Resolver:         imageurl.New(rt.cfg.APIBaseURL, rt.cfg.UploadPrefix),
		Session:          session.New(kv),
		Favorites:        favorites.New(kv),
		Mailer:           mailer,
		QuickPrepMinutes: rt.cfg.QuickPrepMinutes,
	})

	if ctx == nil {
		ctx = context.Background()
	}
	return rt.chef.Start(ctx)
}

func (rt *runtime) close() {
	if rt.db != nil {
		rt.db.Close()
	}
	logger.Sync()
}

func (rt *runtime) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !rt.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := database.CleanupExpiredCSRFTokens(rt.db); err != nil {
		logger.Warn("Failed to clean up CSRF tokens", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if err := handlers.SetupRoutes(r, rt.chef, rt.db, rt.cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              rt.cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", srv.Addr, "api", rt.cfg.APIBaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (rt *runtime) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web front (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(cmd.Context())
		},
	}
}

func (rt *runtime) recipesCmd() *cobra.Command {
	var view, category string

	cmd := &cobra.Command{
		Use:   "recipes [query]",
		Short: "List recipes in a view",
		Long: `Lists the recipes of a view. Views: home, categories, favorites, myRecipes, about.

Examples:
  pocketchef recipes tomato
  pocketchef recipes --view categories --category quick
  pocketchef recipes --view favorites`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch recipes.View(view) {
			case recipes.ViewHome:
				if len(args) == 1 {
					rt.chef.Search(args[0])
				}
			case recipes.ViewCategories:
				rt.chef.ShowCategories(category)
			case recipes.ViewFavorites:
				err = rt.chef.ShowFavorites()
			case recipes.ViewMyRecipes:
				err = rt.chef.ShowMyRecipes()
			case recipes.ViewAbout:
				rt.chef.ShowAbout()
			default:
				return fmt.Errorf("unknown view %q", view)
			}
			if err != nil {
				return rt.report(cmd.OutOrStdout(), err)
			}
			return textview.Render(cmd.OutOrStdout(), rt.chef.Render())
		},
	}

	cmd.Flags().StringVar(&view, "view", string(recipes.ViewHome), "View to list")
	cmd.Flags().StringVar(&category, "category", "", "Category for the categories view ("+recipes.QuickCategory+" for quick recipes)")
	return cmd
}

func (rt *runtime) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recipe with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := rt.chef.OpenRecipe(cmd.Context(), id); err != nil {
				return rt.report(cmd.OutOrStdout(), err)
			}
			return textview.Render(cmd.OutOrStdout(), rt.chef.Render())
		},
	}
}

func (rt *runtime) loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := rt.chef.Login(cmd.Context(), args[0], password)
			return rt.report(cmd.OutOrStdout(), err)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (rt *runtime) registerCmd() *cobra.Command {
	var password, confirm, role string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confirm == "" {
				confirm = password
			}
			_, err := rt.chef.Register(cmd.Context(), args[0], password, confirm, role)
			return rt.report(cmd.OutOrStdout(), err)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (default: same as --password)")
	cmd.Flags().StringVar(&role, "role", app.RoleUser, "Account role (user or admin)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (rt *runtime) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.report(cmd.OutOrStdout(), rt.chef.Logout())
		},
	}
}

func (rt *runtime) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, ok := rt.chef.Session().Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", identity.Username, identity.Role)
			return nil
		},
	}
}

func (rt *runtime) favoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Add or remove a recipe from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = rt.chef.ToggleFavorite(id)
			return rt.report(cmd.OutOrStdout(), err)
		},
	}
}

func (rt *runtime) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like or unlike a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := rt.chef.ToggleLike(cmd.Context(), id)
			if err != nil {
				return rt.report(cmd.OutOrStdout(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d likes)\n", result.Status, result.Likes)
			return nil
		},
	}
}

func (rt *runtime) commentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <id>",
		Short: "List the comments on a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			comments, err := rt.chef.Comments(cmd.Context(), id)
			return textview.RenderComments(cmd.OutOrStdout(), comments, err != nil)
		},
	}
}

func (rt *runtime) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Comment on a recipe",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = rt.chef.AddComment(cmd.Context(), id, strings.Join(args[1:], " "))
			return rt.report(cmd.OutOrStdout(), err)
		},
	}
}

func (rt *runtime) shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <id> <email>",
		Short: "Email a recipe to someone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rt.report(cmd.OutOrStdout(), rt.chef.ShareRecipe(cmd.Context(), id, args[1]))
		},
	}
}

// report prints the notice an action left behind and passes err through.
func (rt *runtime) report(w io.Writer, err error) error {
	if notice := rt.chef.Render().Notice; notice != nil {
		fmt.Fprintln(w, notice.Message)
	}
	return err
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recipe id %q", raw)
	}
	return id, nil
}
