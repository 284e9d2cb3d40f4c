package chat

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"persona-chat-api/internal/core/cache"
)

// TrainingStore 人设训练文本落盘 + 可选 redis 读缓存。
// 训练文本和人设元数据分开维护，可以单独上传/替换。
type TrainingStore struct {
	dir   string
	cache *cache.Cache // 可为 nil（比如测试 / 未配置 redis），nil 时直接读文件
	ttl   time.Duration
}

func NewTrainingStore(dir string, c *cache.Cache) *TrainingStore {
	return &TrainingStore{dir: dir, cache: c, ttl: 5 * time.Minute}
}

// Save 写训练文本，返回落盘路径（存到 Persona.TrainingFilePath）
func (s *TrainingStore) Save(personaID, text string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, personaID+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	if s.cache != nil {
		// 覆盖旧缓存，避免编排层读到过期文本
		_ = s.cache.RDB.Del(context.Background(), trainingKey(path)).Err()
	}
	return path, nil
}

// Load 读训练文本。path 为空或文件不存在都按"无训练文本"处理，不当错误。
func (s *TrainingStore) Load(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if s.cache == nil {
		return readTraining(path)
	}
	b, err := s.cache.GetOrLoad(ctx, trainingKey(path), s.ttl, func(context.Context) ([]byte, error) {
		t, e := readTraining(path)
		return []byte(t), e
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readTraining(path string) (string, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func trainingKey(path string) string { return "persona:training:" + path }
