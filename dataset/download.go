package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MIND 官方发布地址（large/small 与 demo 分属不同容器）。
const (
	mindReleaseURL = "https://mind201910small.blob.core.windows.net/release/"
	mindDemoURL    = "https://recodatasets.blob.core.windows.net/newsrec/"
)

// MindDataSet 返回指定规格的下载地址与文件名。
// variant 取值 large / small / demo。
func MindDataSet(variant string) (url, train, dev, utils string, err error) {
	switch variant {
	case "large":
		return mindReleaseURL, "MINDlarge_train.zip", "MINDlarge_dev.zip", "MINDlarge_utils.zip", nil
	case "small":
		return mindReleaseURL, "MINDsmall_train.zip", "MINDsmall_dev.zip", "MINDsma_utils.zip", nil
	case "demo":
		return mindDemoURL, "MINDdemo_train.zip", "MINDdemo_dev.zip", "MINDdemo_utils.zip", nil
	}
	return "", "", "", "", fmt.Errorf("unknown mind variant %q (want large/small/demo)", variant)
}

// Downloader 下载并解包数据集归档。
type Downloader struct {
	client *http.Client
}

// NewDownloader 创建下载器。
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// MaybeDownload 按需下载单个文件，返回本地路径。
//
// expectedBytes > 0 时校验文件大小：不匹配则删除残留文件并报错，
// 防止使用损坏的归档（无重试，调用方决定是否重新下载）。
func (d *Downloader) MaybeDownload(ctx context.Context, url, filename, workDir string, expectedBytes int64) (string, error) {
	if filename == "" {
		filename = url[strings.LastIndexByte(url, '/')+1:]
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(workDir, filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := d.fetch(ctx, url, path); err != nil {
			return "", err
		}
	}

	if expectedBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat downloaded file: %w", err)
		}
		if info.Size() != expectedBytes {
			os.Remove(path)
			return "", fmt.Errorf("failed to verify %s: got %d bytes, expect %d", path, info.Size(), expectedBytes)
		}
	}
	return path, nil
}

// fetch 下载到临时文件后原子重命名，避免半截文件被误用。
func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// DownloadResources 下载一个归档并解包到 dataPath，随后删除归档。
func (d *Downloader) DownloadResources(ctx context.Context, downloadURL, dataPath, resourceName string) error {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path, err := d.MaybeDownload(ctx, downloadURL+resourceName, resourceName, dataPath, 0)
	if err != nil {
		return err
	}
	if err := unzip(path, dataPath); err != nil {
		return fmt.Errorf("unzip %s: %w", path, err)
	}
	return os.Remove(path)
}

// unzip 解包 zip 归档，拒绝路径穿越。
func unzip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
