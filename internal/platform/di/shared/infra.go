// internal/platform/di/shared/infra.go
package shared

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	cldout "sneakhead/internal/adapters/out/cloudinary"
	fbout "sneakhead/internal/adapters/out/firebase"
	fsout "sneakhead/internal/adapters/out/firestore"
	gcsout "sneakhead/internal/adapters/out/gcs"
	mailout "sneakhead/internal/adapters/out/mail"
	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/config"
	firestoreinfra "sneakhead/internal/infra/firestore"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/infra/secrets"
)

// Infra owns the external clients shared by every container.
type Infra struct {
	Config *config.Config
	Log    *zap.Logger

	Firestore     *firestoreinfra.ClientWrapper
	GCS           *storage.Client
	FirebaseApp   *firebase.App
	FirebaseAuth  *fbauth.Client
	SecretManager *secretmanager.Client
	Secrets       *secrets.Resolver

	Store   realtime.Store
	Images  productdom.ImageHost
	Auth    userdom.AuthProvider
	Tokens  *fbout.TokenVerifier
	Uploads *ants.Pool
}

// NewInfra initializes shared infra.
// The store and the configured image host are strict (return error).
// Secret Manager, Firebase Auth and mail are best-effort (warn + continue).
func NewInfra(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("shared.infra: config is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	inf := &Infra{Config: cfg, Log: log}

	var clientOpts []option.ClientOption
	if f := strings.TrimSpace(cfg.GCP.CredentialsFile); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
		log.Info("[shared.infra] using credentials file", zap.String("file", filepath.Base(f)))
	} else {
		log.Info("[shared.infra] using application default credentials")
	}

	// 1) Secret Manager (best-effort)
	if cfg.GCP.ProjectID != "" {
		sm, err := secretmanager.NewClient(ctx, clientOpts...)
		if err != nil {
			log.Warn("[shared.infra] secretmanager.NewClient failed; sm:// values will not resolve", zap.Error(err))
		} else {
			inf.SecretManager = sm
		}
	}
	inf.Secrets = secrets.NewResolver(inf.SecretManager, cfg.GCP.ProjectID)

	// 2) Realtime store (strict)
	switch cfg.Store.Backend {
	case config.StoreMemory:
		inf.Store = realtime.NewMemoryStore()
		log.Warn("[shared.infra] using in-memory store; data is lost on exit")
	default:
		fs, err := firestoreinfra.NewClient(ctx, cfg.GCP.ProjectID, "", log, clientOpts...)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: firestore (project=%s): %w", cfg.GCP.ProjectID, err)
		}
		inf.Firestore = fs
		inf.Store = fsout.NewStoreFS(fs.Client, log.Named("store"))
	}

	// 3) Image host (strict for the configured provider)
	if err := inf.initImages(ctx, clientOpts); err != nil {
		_ = inf.Close()
		return nil, err
	}

	// 4) Upload worker pool
	pool, err := ants.NewPool(cfg.Images.Workers, ants.WithPanicHandler(func(p any) {
		log.Error("[shared.infra] upload worker panic", zap.Any("panic", p))
	}))
	if err != nil {
		_ = inf.Close()
		return nil, fmt.Errorf("shared.infra: ants.NewPool: %w", err)
	}
	inf.Uploads = pool

	// 5) Firebase App/Auth (best-effort)
	inf.initAuth(ctx, clientOpts)

	return inf, nil
}

func (i *Infra) initImages(ctx context.Context, clientOpts []option.ClientOption) error {
	cfg := i.Config.Images
	switch cfg.Provider {
	case config.ImagesCloudinary:
		cc := cfg.Cloudinary
		if err := i.Secrets.ResolveAll(ctx, &cc.APIKey, &cc.APISecret); err != nil {
			return fmt.Errorf("shared.infra: cloudinary credentials: %w", err)
		}
		host, err := cldout.New(cc)
		if err != nil {
			return fmt.Errorf("shared.infra: %w", err)
		}
		i.Images = host
		i.Log.Info("[shared.infra] image host: cloudinary", zap.String("cloud", cc.CloudName))
	default:
		gcs, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			return fmt.Errorf("shared.infra: storage.NewClient failed: %w", err)
		}
		i.GCS = gcs
		repo := gcsout.NewProductImageRepositoryGCS(gcs, cfg.Bucket, cfg.Prefix)
		if u := strings.TrimSpace(cfg.PublicBaseURL); u != "" {
			repo.PublicBaseURL = u
		}
		i.Images = repo
		i.Log.Info("[shared.infra] image host: gcs", zap.String("bucket", cfg.Bucket))
	}
	return nil
}

func (i *Infra) initAuth(ctx context.Context, clientOpts []option.ClientOption) {
	i.Auth = unavailableAuth{}
	if i.Config.GCP.ProjectID == "" {
		i.Log.Warn("[shared.infra] gcp.project_id empty; auth disabled")
		return
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: i.Config.GCP.ProjectID}, clientOpts...)
	if err != nil {
		i.Log.Warn("[shared.infra] firebase app init failed", zap.Error(err))
		return
	}
	i.FirebaseApp = app
	client, err := app.Auth(ctx)
	if err != nil {
		i.Log.Warn("[shared.infra] firebase auth init failed", zap.Error(err))
		return
	}
	i.FirebaseAuth = client
	i.Tokens = &fbout.TokenVerifier{Admin: client}

	fc := i.Config.Firebase
	var signIn fbout.PasswordSignIn
	if err := i.Secrets.ResolveAll(ctx, &fc.APIKey); err != nil {
		i.Log.Warn("[shared.infra] firebase api key unresolved; password login disabled", zap.Error(err))
	} else if fc.APIKey != "" {
		s, err := fbout.NewIdentityToolkitSignIn(ctx, fc.APIKey)
		if err != nil {
			i.Log.Warn("[shared.infra] identity toolkit init failed", zap.Error(err))
		} else {
			signIn = s
		}
	}

	var mailer fbout.ResetMailer
	mc := i.Config.Mail
	if err := i.Secrets.ResolveAll(ctx, &mc.SendGridAPIKey); err != nil {
		i.Log.Warn("[shared.infra] sendgrid key unresolved; reset mail disabled", zap.Error(err))
	} else if mc.SendGridAPIKey != "" && mc.From != "" {
		client := mailout.NewSendGridClient(mc.SendGridAPIKey, mc.FromName, i.Log.Named("mail"))
		mailer = mailout.NewPasswordResetMailer(client, mc.From, mc.FromName)
	} else {
		i.Log.Warn("[shared.infra] sendgrid not configured; reset mail disabled")
	}

	i.Auth = fbout.NewAuthProvider(client, signIn, mailer, fc.ResetContinueURL, i.Log.Named("auth"))
	i.Log.Info("[shared.infra] firebase auth initialized")
}

func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.Uploads != nil {
		i.Uploads.Release()
	}
	if i.Firestore != nil {
		errs = append(errs, i.Firestore.Close())
	}
	if i.GCS != nil {
		errs = append(errs, i.GCS.Close())
	}
	if i.SecretManager != nil {
		errs = append(errs, i.SecretManager.Close())
	}
	return errors.Join(errs...)
}

// unavailableAuth stands in when Firebase could not be initialized.
type unavailableAuth struct{}

func (unavailableAuth) SignUp(context.Context, string, string) (userdom.Identity, error) {
	return userdom.Identity{}, userdom.ErrAuthUnavailable
}
func (unavailableAuth) SignIn(context.Context, string, string) (userdom.Identity, error) {
	return userdom.Identity{}, userdom.ErrAuthUnavailable
}
func (unavailableAuth) SendPasswordReset(context.Context, string) error { return userdom.ErrAuthUnavailable }
func (unavailableAuth) DeleteAccount(context.Context, string) error     { return userdom.ErrAuthUnavailable }
func (unavailableAuth) SignOut(context.Context, string) error           { return userdom.ErrAuthUnavailable }
