package search

// Log-domain vocabulary tables. Bilingual because production log
// corpora here mix Chinese operator queries with English log text.

// synonymTable maps a base term to its synonyms. Expansion is
// bidirectional: matching either the base term or any synonym pulls in
// the whole group.
var synonymTable = map[string][]string{
	"错误":    {"error", "异常", "exception", "失败", "failure", "bug", "问题"},
	"error": {"错误", "异常", "exception", "失败", "failure"},
	"连接":    {"connection", "链接", "connect"},
	"超时":    {"timeout", "time out", "超过时间"},
	"数据库":   {"database", "db", "mysql", "postgresql", "mongo"},
	"性能":    {"performance", "速度", "慢", "slow", "延迟", "latency"},
	"内存":    {"memory", "mem", "ram", "oom"},
	"CPU":   {"cpu", "处理器", "processor"},
	"网络":    {"network", "net", "网关", "gateway"},
	"服务":    {"service", "服务器", "server"},
	"崩溃":    {"crash", "宕机", "down", "故障", "failure"},
	"日志":    {"log", "logs", "logging"},
	"配置":    {"config", "configuration", "settings", "设置"},
	"认证":    {"auth", "authentication", "授权", "authorization"},
	"token": {"令牌", "凭证", "credential"},
	"请求":    {"request", "req"},
	"响应":    {"response", "resp"},
	"并发":    {"concurrent", "并行", "parallel"},
}

// errorPatterns maps an error category to the phrases that indicate it.
var errorPatterns = map[string][]string{
	"连接错误":  {"connection refused", "connection timeout", "connection lost", "无法连接"},
	"认证错误":  {"authentication failed", "unauthorized", "invalid token", "认证失败", "token校验失败"},
	"数据库错误": {"database error", "sql error", "db connection", "连接池耗尽"},
	"超时错误":  {"timeout", "time out", "响应超时", "请求超时"},
	"内存错误":  {"out of memory", "memory overflow", "oom", "内存溢出"},
	"网络错误":  {"network error", "dns error", "网络异常"},
	"权限错误":  {"permission denied", "access denied", "forbidden", "权限不足"},
}

// levelKeywordGroups is checked in priority order; the first group with
// a keyword hit decides the level filter. The info group intentionally
// maps to no level so "info" wording never forces a level filter.
var levelKeywordGroups = []struct {
	level    string
	keywords []string
}{
	{"FATAL", []string{"fatal", "critical", "严重"}},
	{"ERROR", []string{"error", "错误"}},
	{"WARN", []string{"warn", "warning", "警告"}},
	{"", []string{"info", "information", "信息"}},
}

// urgencyKeywords trigger a minimum-severity filter suggestion.
var urgencyKeywords = []string{"严重", "critical", "fatal", "紧急"}

// errorIntentWords signal the query is about a failure.
var errorIntentWords = []string{"错误", "error", "异常", "exception", "失败", "failure", "bug"}

// solutionIntentWords signal the query wants a remedy, not just the logs.
var solutionIntentWords = []string{"怎么", "how", "解决", "solve", "fix", "修复", "如何"}
