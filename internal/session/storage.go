// Package session は認証セッションの保持と永続化を提供する。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hitoshi/uninavi/internal/model"
)

const (
	tokenFileName = "auth_token"
	userFileName  = "user.json"
)

// Storage はセッションの永続化先を抽象化する。
// トークンとユーザーの2エントリを、ログイン時にまとめて書き込み、
// ログアウト時にまとめて削除する。
type Storage interface {
	// LoadToken は保存済みトークンを返す。未保存の場合は空文字列を返す。
	LoadToken() (string, error)
	// LoadUser は保存済みユーザーを返す。未保存の場合はnilを返す。
	LoadUser() (*model.User, error)
	// Save はトークンとユーザーをまとめて保存する。
	Save(token string, user *model.User) error
	// Clear は保存済みのトークンとユーザーをまとめて削除する。
	Clear() error
}

// FileStorage はローカルディレクトリ配下の2ファイルへ永続化するStorage実装。
// トークンは生文字列、ユーザーはJSONとして保存する。
type FileStorage struct {
	dir string
}

// NewFileStorage はFileStorageの新しいインスタンスを生成する。
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// LoadToken は保存済みトークンを読み込む。ファイルがなければ空文字列。
func (s *FileStorage) LoadToken() (string, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, tokenFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("トークンファイルの読み込みに失敗しました: %w", err)
	}
	return string(b), nil
}

// LoadUser は保存済みユーザープロフィールを読み込む。ファイルがなければnil。
func (s *FileStorage) LoadUser() (*model.User, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, userFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ユーザーファイルの読み込みに失敗しました: %w", err)
	}
	var u model.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("ユーザーファイルのパースに失敗しました: %w", err)
	}
	return &u, nil
}

// Save はトークンとユーザーを書き込む。ディレクトリがなければ作成する。
func (s *FileStorage) Save(token string, user *model.User) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("状態ディレクトリの作成に失敗しました: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, tokenFileName), []byte(token), 0o600); err != nil {
		return fmt.Errorf("トークンファイルの書き込みに失敗しました: %w", err)
	}
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("ユーザーのエンコードに失敗しました: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, userFileName), b, 0o600); err != nil {
		return fmt.Errorf("ユーザーファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Clear はトークンとユーザーの両ファイルを削除する。存在しない場合は無視する。
func (s *FileStorage) Clear() error {
	for _, name := range []string{tokenFileName, userFileName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("セッションファイルの削除に失敗しました: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ Storage = (*FileStorage)(nil)
