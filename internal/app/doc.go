// Package app provides the orchestration layer for grrctl.
//
// # Overview
//
// This package wires together configuration, logging, the API client, the
// operation poller, the downloader and the loading indicator. It serves as
// the composition root where all dependencies are initialized and connected;
// the cobra commands in cmd/grrctl only ever talk to an *App.
//
// # Architecture
//
//  1. Load grrctl configuration from ~/.config/grrctl/config.toml
//  2. Build the zap logger at the configured (or overridden) level
//  3. Create the shared loading.Registry every request reports to
//  4. Initialize the apiclient.Client with cache, timeout and user agent
//  5. Create the events.Bus and log every unauthorized notification
//  6. Build the poll.Poller and the download.Downloader on top of the client
//
// # Data Flow
//
//	┌──────────────┐
//	│   New()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()         Read grrctl config
//	       ├─────> logging.New()         zap logger on stderr
//	       ├─────> apiclient.NewClient() REST dispatcher + GET cache
//	       ├─────> events.NewBus()       unauthorized notifications
//	       ├─────> poll.New()            long-running operations
//	       └─────> download.New()        HEAD probe + file loader
//
//	Command execution:
//	┌─────────────────────────────────────────┐
//	│ App.Run(ctx, label, work)               │
//	│  ├─> work(ctx) issues API calls         │
//	│  │    └─> registry.Start()/Stop()       │
//	│  └─> ui.Run() reads registry.Snapshot() │
//	└─────────────────────────────────────────┘
//
// The loading indicator is only shown when stderr is a terminal and the app
// is not quiet. Otherwise Run calls work directly.
//
// # Error Handling
//
// New returns errors for an unreadable configuration, an invalid log level
// or an invalid API URL. Errors from work are returned by Run unchanged.
//
// # Usage Example
//
//	a, err := app.New(app.Options{Quiet: true})
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	return a.Run(ctx, "Fetching clients", func(ctx context.Context) error {
//		resp, err := a.Client.Get(ctx, "/clients", nil)
//		if err != nil {
//			return err
//		}
//		_, err = os.Stdout.Write(resp.Body)
//		return err
//	})
package app
