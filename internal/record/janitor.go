package record

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Janitor は録画ディレクトリの保持期間と合計容量を管理する
// 新しい録画ファイルの出現（fsnotify）と定期タイマーの両方で掃除を行う
type Janitor struct {
	dir           string
	retention     time.Duration // 保持期間（0なら無制限）
	maxTotalBytes int64         // 合計容量の上限（0なら無制限）
	sweepInterval time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewJanitor は新しいJanitorを作成する
func NewJanitor(dir string, retentionDays int, maxTotalBytes int64) *Janitor {
	return &Janitor{
		dir:           dir,
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		maxTotalBytes: maxTotalBytes,
		sweepInterval: time.Hour,
	}
}

// Start はバックグラウンドの監視を開始する
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil
	}
	if j.retention <= 0 && j.maxTotalBytes <= 0 {
		return nil // 何も管理しない設定なら監視不要
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("録画ディレクトリの監視開始に失敗: %w", err)
	}
	if err := watcher.Add(j.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("録画ディレクトリ %s の監視追加に失敗: %w", j.dir, err)
	}

	j.watcher = watcher
	j.stopCh = make(chan struct{})
	j.started = true

	j.wg.Add(1)
	go j.run()
	return nil
}

// Stop は監視を停止する（冪等）
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return
	}
	j.started = false
	close(j.stopCh)
	j.mu.Unlock()

	j.wg.Wait()
	_ = j.watcher.Close()
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case event, ok := <-j.watcher.Events:
			if !ok {
				return
			}
			// 新しい録画ファイルが現れたら掃除する
			if event.Has(fsnotify.Create) {
				if err := j.Sweep(); err != nil {
					log.Printf("録画ディレクトリの掃除に失敗: %v", err)
				}
			}
		case err, ok := <-j.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("録画ディレクトリの監視エラー: %v", err)
		case <-ticker.C:
			if err := j.Sweep(); err != nil {
				log.Printf("録画ディレクトリの掃除に失敗: %v", err)
			}
		}
	}
}

// Sweep は保持期間超過と容量超過の録画ファイルを削除する
// 容量超過時は古いものから順に削除する
func (j *Janitor) Sweep() error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return fmt.Errorf("録画ディレクトリの読み取りに失敗: %w", err)
	}

	type recording struct {
		path    string
		size    int64
		modTime time.Time
	}

	var recordings []recording
	var total int64
	now := time.Now()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())

		// 保持期間を超えたファイルは即削除
		if j.retention > 0 && now.Sub(info.ModTime()) > j.retention {
			if err := os.Remove(path); err != nil {
				log.Printf("期限切れ録画 %s の削除に失敗: %v", path, err)
			} else {
				log.Printf("期限切れ録画を削除しました: %s", path)
			}
			continue
		}

		recordings = append(recordings, recording{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	if j.maxTotalBytes <= 0 || total <= j.maxTotalBytes {
		return nil
	}

	// 古い順にソートして容量が収まるまで削除
	sort.Slice(recordings, func(i, k int) bool {
		return recordings[i].modTime.Before(recordings[k].modTime)
	})

	for _, rec := range recordings {
		if total <= j.maxTotalBytes {
			break
		}
		if err := os.Remove(rec.path); err != nil {
			log.Printf("容量超過録画 %s の削除に失敗: %v", rec.path, err)
			continue
		}
		log.Printf("容量超過のため録画を削除しました: %s", rec.path)
		total -= rec.size
	}

	return nil
}
