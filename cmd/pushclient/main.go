// Command pushclient is the device side of the relay. It keeps the device id,
// push token and notification inbox in a local state file and talks to the
// backend API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"device-push-backend/config"
	"device-push-backend/internal/client"
	"device-push-backend/internal/inbox"
	"device-push-backend/internal/kv"
	"device-push-backend/internal/logging"
	"device-push-backend/internal/model"
	"device-push-backend/internal/registry"
)

const usage = `usage: pushclient [flags] <command> [args]

commands:
  register -token TOKEN [-name NAME]   store the push token and register with the backend
  status                               show local identity and backend registration
  unregister                           deactivate on the backend and disable notifications
  test                                 ask the backend for a test notification
  devices                              list devices known to the backend
  send -ids ID[,ID] -title T -body B [-data JSON]
  history                              show the backend delivery history
  inbox list|count|clear
  inbox add -title T -body B [-id ID] [-data JSON]
  inbox read ID | inbox delete ID
  reset                                forget device id, push token and settings
`

type app struct {
	identity *client.Identity
	inbox    *inbox.Store
	api      *client.APIClient
}

func main() {
	_ = godotenv.Load()

	var (
		apiURL    = flag.String("api", envOr("PUSH_API_URL", "http://localhost:3001"), "backend base URL")
		stateFile = flag.String("state", envOr("PUSH_STATE_FILE", defaultStateFile()), "local state file")
		platform  = flag.String("platform", envOr("PUSH_PLATFORM", "android"), "device platform: ios or android")
		osLabel   = flag.String("os", envOr("PUSH_OS_LABEL", runtime.GOOS), "operating system label used in new device ids")
		proxy     = flag.String("proxy", os.Getenv("PUSH_HTTP_PROXY"), "HTTP proxy for backend calls")
		logLevel  = flag.String("log-level", "warn", "log level")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if !model.Platform(*platform).Valid() {
		fmt.Fprintf(os.Stderr, "invalid platform %q\n", *platform)
		os.Exit(2)
	}

	logger, err := logging.New(config.LogConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store := kv.NewFileStore(*stateFile)
	a := &app{
		identity: client.NewIdentity(store, model.Platform(*platform), *osLabel, logger),
		inbox:    inbox.New(store, logger),
		api:      client.NewAPIClient(client.Options{BaseURL: *apiURL, HTTPProxy: *proxy}, logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "status":
		return a.status(ctx)
	case "unregister":
		if err := a.api.UnregisterDevice(ctx, a.identity.DeviceID(ctx)); err != nil {
			return err
		}
		return a.identity.DisableNotifications(ctx)
	case "test":
		resp, err := a.api.SendTestNotification(ctx, a.identity.DeviceID(ctx))
		if err != nil {
			return err
		}
		return printJSON(resp)
	case "devices":
		devices, err := a.api.ListDevices(ctx)
		if err != nil {
			return err
		}
		return printJSON(devices)
	case "send":
		return a.send(ctx, args)
	case "history":
		entries, err := a.api.History(ctx)
		if err != nil {
			return err
		}
		return printJSON(entries)
	case "inbox":
		return a.inboxCmd(ctx, args)
	case "reset":
		return a.identity.ClearDeviceData(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	token := fs.String("token", "", "push token issued by the platform")
	name := fs.String("name", hostname(), "device name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	if err := a.identity.SetPushToken(ctx, *token); err != nil {
		return err
	}
	if err := a.identity.SaveSettings(ctx, client.Settings{Enabled: true}); err != nil {
		return err
	}

	deviceID := a.identity.DeviceID(ctx)
	if err := a.api.RegisterDevice(ctx, registry.RegisterInput{
		DeviceID:   deviceID,
		PushToken:  *token,
		Platform:   a.identity.Platform(),
		DeviceName: *name,
	}); err != nil {
		return err
	}
	fmt.Println("registered", deviceID)
	return nil
}

func (a *app) status(ctx context.Context) error {
	deviceID := a.identity.DeviceID(ctx)
	token, err := a.identity.PushToken(ctx)
	if err != nil {
		return err
	}
	settings, err := a.identity.Settings(ctx)
	if err != nil {
		return err
	}
	total, unread := a.inbox.Counts(ctx)

	out := map[string]any{
		"deviceId":             deviceID,
		"hasPushToken":         token != "",
		"notificationsEnabled": settings.Enabled,
		"inbox":                map[string]int{"total": total, "unread": unread},
		"backendReachable":     a.api.HealthCheck(ctx),
	}
	if reg, err := a.api.CheckRegistration(ctx, deviceID); err == nil {
		out["registration"] = reg
	}
	return printJSON(out)
}

func (a *app) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	ids := fs.String("ids", "", "comma separated device ids")
	title := fs.String("title", "", "notification title")
	body := fs.String("body", "", "notification body")
	data := fs.String("data", "", "JSON object attached to the notification")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := parseData(*data)
	if err != nil {
		return err
	}
	resp, err := a.api.SendNotification(ctx, client.SendRequest{
		DeviceIDs: splitIDs(*ids),
		Title:     *title,
		Body:      *body,
		Data:      payload,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func (a *app) inboxCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("inbox: missing subcommand")
	}

	switch args[0] {
	case "list":
		return printJSON(a.inbox.List(ctx))
	case "count":
		total, unread := a.inbox.Counts(ctx)
		return printJSON(map[string]int{"total": total, "unread": unread})
	case "clear":
		return a.identity.ClearAllNotifications(ctx)
	case "add":
		fs := flag.NewFlagSet("inbox add", flag.ContinueOnError)
		id := fs.String("id", "", "entry id")
		title := fs.String("title", "", "title")
		body := fs.String("body", "", "body")
		data := fs.String("data", "", "JSON object payload")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		payload, err := parseData(*data)
		if err != nil {
			return err
		}
		return a.inbox.Insert(ctx, inbox.Entry{ID: *id, Title: *title, Body: *body, Payload: payload})
	case "read", "delete":
		if len(args) < 2 {
			return fmt.Errorf("inbox %s: missing id", args[0])
		}
		if args[0] == "read" {
			return a.inbox.MarkRead(ctx, args[1])
		}
		return a.inbox.Delete(ctx, args[1])
	default:
		return fmt.Errorf("inbox: unknown subcommand %q", args[0])
	}
}

func parseData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("-data must be a JSON object: %w", err)
	}
	return data, nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pushclient.json"
	}
	return filepath.Join(dir, "pushclient", "state.json")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown device"
	}
	return name
}
