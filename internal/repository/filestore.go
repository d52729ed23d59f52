package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fileStore читает и записывает именованные таблицы в виде целых JSON-файлов.
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// load считывает таблицу name в v. Отсутствующая таблица создаётся пустой,
// повреждённая таблица трактуется как пустая — потеря данных при порче файла
// предпочтительнее фатальной ошибки для всего сервиса.
func (f *fileStore) load(name string, v any) error {
	path := filepath.Join(f.dir, name)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, v); err != nil {
			// corrupt table, keep the empty default
			return nil
		}
		return nil
	case os.IsNotExist(err):
		return f.save(name, v)
	default:
		// unreadable table, keep the empty default
		return nil
	}
}

// save сериализует таблицу целиком и атомарно заменяет файл через rename.
func (f *fileStore) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal table %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write table %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace table %s: %w", name, err)
	}

	return nil
}
