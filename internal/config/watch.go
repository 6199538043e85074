package config

import (
	"context"
	"os"
	"time"
)

// WatchLayout loads the layout, hands it to onUpdate, then polls the file's
// mtime and calls onUpdate again after every successful reload. Invalid edits
// are reported through onError and the previous layout stays in effect.
func WatchLayout(ctx context.Context, path string, every time.Duration, onUpdate func(*Layout), onError func(error)) error {
	if path == "" {
		path = DefaultLayoutPath
	}
	if every <= 0 {
		every = 30 * time.Second
	}

	layout, err := LoadLayout(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(layout)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				layout, err := LoadLayout(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if onUpdate != nil {
					onUpdate(layout)
				}
			}
		}
	}()

	return nil
}
