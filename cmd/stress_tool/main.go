package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"healthhive/internal/pkg/config"
	"healthhive/pkg/logger"
	"healthhive/pkg/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 并发点赞/点踩压测：每个虚拟用户对同一条评论先点赞，奇数用户再改为点踩
// 结束后校验计数，检验存储层的原子性

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type counts struct {
	ID           string `json:"id"`
	LikeCount    int    `json:"likeCount"`
	DislikeCount int    `json:"dislikeCount"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base URL")
	postID := flag.String("post", "", "existing post id")
	users := flag.Int("users", 2000, "number of virtual users")
	workers := flag.Int("workers", 200, "concurrent requests")
	flag.Parse()

	_ = godotenv.Load()
	config.LoadConfig()
	log, err := logger.Init("debug")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *postID == "" {
		log.Fatal("-post is required")
	}

	author := mustToken(log, uuid.NewString())
	var created counts
	if err := call(http.MethodPost, *baseURL+"/posts/"+*postID+"/comments", author,
		map[string]interface{}{"text": "stress test comment"}, &created); err != nil {
		log.Fatal("create comment", zap.Error(err))
	}
	log.Info("stress test started", zap.String("comment", created.ID), zap.Int("users", *users), zap.Int("workers", *workers))

	reactURL := *baseURL + "/comments/" + created.ID + "/reactions"
	var failed atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, *workers)
	start := time.Now()

	for i := 0; i < *users; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			token := mustToken(log, uuid.NewString())
			if err := call(http.MethodPost, reactURL, token, map[string]string{"kind": "like"}, nil); err != nil {
				failed.Add(1)
				return
			}
			if i%2 == 1 {
				if err := call(http.MethodPost, reactURL, token, map[string]string{"kind": "dislike"}, nil); err != nil {
					failed.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	duration := time.Since(start)

	var final counts
	if err := call(http.MethodGet, *baseURL+"/comments/"+created.ID, author, nil, &final); err != nil {
		log.Fatal("fetch comment", zap.Error(err))
	}

	wantDislikes := *users / 2
	wantLikes := *users - wantDislikes
	requests := *users + wantDislikes
	fmt.Println("--------------------------------------------------")
	fmt.Printf("耗时: %v  请求数: %d  QPS: %.2f  失败: %d\n", duration, requests, float64(requests)/duration.Seconds(), failed.Load())
	fmt.Printf("点赞: %d (预期 %d)  点踩: %d (预期 %d)\n", final.LikeCount, wantLikes, final.DislikeCount, wantDislikes)
	fmt.Println("--------------------------------------------------")

	if failed.Load() == 0 && (final.LikeCount != wantLikes || final.DislikeCount != wantDislikes) {
		log.Error("reaction counts diverged")
		os.Exit(1)
	}
}

func mustToken(log *zap.Logger, userID string) string {
	token, _, err := utils.GenerateToken(userID, "user", time.Hour)
	if err != nil {
		log.Fatal("generate token", zap.Error(err))
	}
	return token
}

func call(method, url, token string, body interface{}, out interface{}) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
