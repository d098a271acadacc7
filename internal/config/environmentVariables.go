package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, the job store falls back to memory
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	RateLimiterIdleTTL              = 10 * time.Minute //per-IP buckets unused this long are dropped

	//pipeline output layout
	DefaultOutputDir   = "temp_output/smartcn"
	DefaultDBFile      = "textbooks.db"
	DownloadsDir       = "downloads"
	ProcessedDir       = "processed"
	TmProcessedDir     = "tm_processed"
	QueriesDir         = "queries"
	UnsplitDatasetDir  = "ir_datasets"
	SplitDatasetDir    = "ir_datasets_splitted"
	PageDatasetDir     = "ir_datasets_splitted_page"
	MiddleFileSuffix   = "_middle.json"
	LessonPlanCategory = "lesson_plan"
	TmTextbookCategory = "tm_textbook"

	//content api
	SmartcnPrimaryHost       = "https://s-file-1.ykt.cbern.com.cn"
	SmartcnFallbackHost      = "https://s-file-2.ykt.cbern.com.cn"
	SmartcnRequestDelay      = 1 * time.Second
	SmartcnRequestTimeout    = 15 * time.Second
	SmartcnLessonPlanLimit   = 100
	SmartcnPerTextbookMin    = 10
	SmartcnTextbooksPerRun   = 10
	SmartcnLessonPlanTagName = "教学设计"
	SmartcnAuthHeader        = "x-nd-auth"

	//mineru
	MineruBinary  = "mineru"
	MineruTimeout = 30 * time.Minute

	//llm query generation
	LLMMaxAttempts    = 3 //total calls per document, first try included
	LLMRetryBackoff   = 2 * time.Second
	LLMRequestsPerSec = 1
	QueryGenWorkers   = 4

	//embeddings
	EmbeddingOutputDimensionality int32 = 1024 //bge-m3
	EmbeddingBatchSize                  = 10
	EmbeddingCollectionSuffix           = "bge_m3"

	//eval
	EvalTopK      = 10
	EvalBatchSize = 20

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 4
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobExecutionTimeout             = 2 * time.Hour

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1

	//llm
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIModelName      = "qwen2.5-instruct"
	OpenAIEmbeddingModel = "bge-m3"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore       = 0
	RedisEventStore     = 1
	RedisEmbeddingCache = 2

	//redis timeouts
	RedisJobStoreTTL       = 24 * time.Hour
	RedisEventStoreTTL     = 24 * time.Hour
	RedisEmbeddingCacheTTL = 7 * 24 * time.Hour

	//events kept per job
	EventStoreMaxLen = 50
)

// Subjects drives textbook selection for download runs, one textbook per keyword.
var Subjects = []string{"语文", "数学", "英语", "物理", "化学", "生物", "历史", "地理", "政治", "科学", "信息", "音乐", "美术", "体育"}
