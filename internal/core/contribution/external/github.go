package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	githubconfig "github.com/weisyn/contribsync/internal/config/github"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
)

const contributionsQuery = `query($login: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from, to: $to) {
      contributionCalendar { totalContributions }
    }
  }
}`

// maxErrorBody 错误响应最多读取的字节数
const maxErrorBody = 4 << 10

// GitHubFetcher 通过 GitHub REST 与 GraphQL 接口获取贡献数据，单次请求不重试
type GitHubFetcher struct {
	httpClient *http.Client
	baseURL    string
	graphqlURL string
	token      string
	now        func() time.Time
}

var _ contribution.ContributionFetcher = (*GitHubFetcher)(nil)

// NewGitHubFetcher 创建 GitHub 数据源
func NewGitHubFetcher(cfg *githubconfig.Config, httpClient *http.Client) *GitHubFetcher {
	opts := cfg.GetOptions()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &GitHubFetcher{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		graphqlURL: opts.GraphQLURL,
		token:      opts.Token,
		now:        time.Now,
	}
}

// HandleExists GET /users/{handle}，404 视为不存在
func (f *GitHubFetcher) HandleExists(ctx context.Context, handle string) (bool, error) {
	endpoint := fmt.Sprintf("%s/users/%s", f.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	f.decorate(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, networkError(ctx, OpHandleExists, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, classifyResponse(OpHandleExists, resp)
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type contributionsResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					TotalContributions int `json:"totalContributions"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// TotalContributions 查询 [now-windowDays, now] 的贡献总数，账号不存在时返回 nil
func (f *GitHubFetcher) TotalContributions(ctx context.Context, handle string, windowDays int) (*int, error) {
	to := f.now().UTC()
	from := to.AddDate(0, 0, -windowDays)
	body, err := json.Marshal(graphqlRequest{
		Query: contributionsQuery,
		Variables: map[string]any{
			"login": handle,
			"from":  from.Format(time.RFC3339),
			"to":    to.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	f.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, networkError(ctx, OpTotalContributions, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", OpTotalContributions, handle, ErrHandleNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(OpTotalContributions, resp)
	}

	var out contributionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransientError{Op: OpTotalContributions, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Errors) > 0 {
		return nil, classifyGraphQLErrors(out.Errors)
	}
	if out.Data.User == nil {
		return nil, nil
	}
	total := out.Data.User.ContributionsCollection.ContributionCalendar.TotalContributions
	return &total, nil
}

func (f *GitHubFetcher) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "contribsync")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
}

// networkError 调用方主动取消时原样返回，其余网络错误视为可重试
func networkError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransientError{Op: op, Err: err}
}

// classifyResponse 将非 2xx 响应映射为错误类型
//
// 429、剩余配额为 0 的 403、或消息中包含 rate limit 的 403 视为限流；
// 408 与 5xx 可重试；其余 4xx 一律视为拒绝访问。
func classifyResponse(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := responseMessage(raw)
	status := resp.StatusCode

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0",
		status == http.StatusForbidden && strings.Contains(strings.ToLower(msg), "rate limit"):
		return &RateLimitError{Op: op, StatusCode: status, ResetAt: resetTime(resp.Header), Message: msg}
	case status == http.StatusRequestTimeout, status >= 500:
		return &TransientError{Op: op, StatusCode: status, Err: errors.New(msg)}
	case status >= 400:
		return &ForbiddenError{Op: op, StatusCode: status, Message: msg}
	default:
		return &TransientError{Op: op, StatusCode: status, Err: fmt.Errorf("unexpected status: %s", msg)}
	}
}

func classifyGraphQLErrors(errs []graphqlError) error {
	first := errs[0]
	switch strings.ToUpper(first.Type) {
	case "RATE_LIMITED":
		return &RateLimitError{Op: OpTotalContributions, StatusCode: http.StatusOK, Message: first.Message}
	case "NOT_FOUND":
		return fmt.Errorf("%s: %s: %w", OpTotalContributions, first.Message, ErrHandleNotFound)
	case "FORBIDDEN":
		return &ForbiddenError{Op: OpTotalContributions, StatusCode: http.StatusOK, Message: first.Message}
	}
	if strings.Contains(strings.ToLower(first.Message), "rate limit") {
		return &RateLimitError{Op: OpTotalContributions, StatusCode: http.StatusOK, Message: first.Message}
	}
	return &TransientError{Op: OpTotalContributions, StatusCode: http.StatusOK, Err: errors.New(first.Message)}
}

func responseMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty response"
	}
	return s
}

func resetTime(h http.Header) time.Time {
	v := h.Get("X-RateLimit-Reset")
	if v == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
