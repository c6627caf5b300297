package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// APIBenchmark 定义API压测结构
type APIBenchmark struct {
	BaseURL     string
	Concurrency int
	Requests    int
	Headers     map[string]string
	Client      *http.Client
}

// BenchmarkResult 定义压测结果
type BenchmarkResult struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	MinTime        time.Duration `json:"min_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

// RequestResult 定义单个请求的结果
type RequestResult struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

// NewAPIBenchmark 创建新的API压测实例
func NewAPIBenchmark(baseURL string, concurrency, requests int) *APIBenchmark {
	return &APIBenchmark{
		BaseURL:     baseURL,
		Concurrency: concurrency,
		Requests:    requests,
		Headers:     map[string]string{},
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RunGET 对同一路径重复发起GET请求
func (b *APIBenchmark) RunGET(path string) *BenchmarkResult {
	return b.run(http.MethodGet, b.BaseURL+path, func(int) ([]byte, error) { return nil, nil })
}

// RunPOSTEach builds a fresh body per request so ingest calls can spread
// over many device ids instead of tripping the per-device cooldown.
func (b *APIBenchmark) RunPOSTEach(path string, payload func(i int) interface{}) *BenchmarkResult {
	return b.run(http.MethodPost, b.BaseURL+path, func(i int) ([]byte, error) {
		return json.Marshal(payload(i))
	})
}

func (b *APIBenchmark) run(method, url string, body func(i int) ([]byte, error)) *BenchmarkResult {
	results := make(chan RequestResult, b.Requests)
	var wg sync.WaitGroup
	limiter := make(chan struct{}, b.Concurrency)

	startTime := time.Now()

	for i := 0; i < b.Requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			results <- b.do(method, url, body, i)
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return b.collect(method, url, startTime, results)
}

func (b *APIBenchmark) do(method, url string, body func(i int) ([]byte, error), i int) RequestResult {
	payload, err := body(i)
	if err != nil {
		return RequestResult{Error: fmt.Errorf("JSON编码错误: %w", err)}
	}

	start := time.Now()
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return RequestResult{Error: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return RequestResult{Error: err}
	}
	defer resp.Body.Close()

	return RequestResult{Duration: time.Since(start), StatusCode: resp.StatusCode}
}

func (b *APIBenchmark) collect(method, url string, startTime time.Time, results <-chan RequestResult) *BenchmarkResult {
	res := &BenchmarkResult{
		URL:           url,
		Method:        method,
		Concurrency:   b.Concurrency,
		TotalRequests: b.Requests,
		MinTime:       1<<63 - 1,
		StatusCodes:   make(map[int]int),
	}

	var totalTime time.Duration
	for r := range results {
		if r.Error != nil {
			res.FailureCount++
			res.Errors = append(res.Errors, r.Error.Error())
			continue
		}

		totalTime += r.Duration
		if r.Duration < res.MinTime {
			res.MinTime = r.Duration
		}
		if r.Duration > res.MaxTime {
			res.MaxTime = r.Duration
		}

		res.StatusCodes[r.StatusCode]++
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
	}

	res.TotalTime = time.Since(startTime)
	res.RequestsPerSec = float64(b.Requests) / res.TotalTime.Seconds()
	if n := res.SuccessCount + res.FailureCount; n > 0 {
		res.AverageTime = totalTime / time.Duration(n)
	}
	return res
}

// String 格式化压测结果
func (r *BenchmarkResult) String() string {
	return fmt.Sprintf("%s %s: %d req, %d ok, %d fail, avg=%v min=%v max=%v, %.1f req/s, codes=%v",
		r.Method, r.URL, r.TotalRequests, r.SuccessCount, r.FailureCount,
		r.AverageTime, r.MinTime, r.MaxTime, r.RequestsPerSec, r.StatusCodes)
}
