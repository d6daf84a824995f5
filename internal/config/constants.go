package config

import "time"

const (
	TRACE_ID_KEY = "traceId"
	USER_ID_KEY  = "userId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//server listening port
	ServerListenAddr = ":3000"

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//durable state roots, relative to the data directory
	UploadRoot = "uploads"
	VectorRoot = "vector_store"
	ExportRoot = "exports"

	//multipart upload cap
	MaxUploadSize = 32 << 20 //32mb

	//ingestion job buffer limit
	BufferLimit = 100

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//embedding batches
	EmbeddingBatchSize = 100

	//outbound HTTP calls (search APIs, domain APIs, embedding services)
	HTTPCallTimeout = 10 * time.Second

	//sandboxed code execution can legitimately run longer than a fetch
	SandboxExecTimeout = 30 * time.Second

	//vectorDB
	EmbeddingOutputDimensionality = 1536

	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DBs we can use
	RedisJobStore     = 0
	RedisSessionStore = 1
	RedisOTPStore     = 2
	RedisResetStore   = 3

	RedisJobStoreTTL = 24 * time.Hour

	//auth token lifetimes
	SessionTTL     = 24 * time.Hour
	ResetTokenTTL  = 1 * time.Hour
	OTPTTL         = 10 * time.Minute
	OTPMaxAttempts = 3

	//system instruction handed to the LLM for summarization calls
	ModelContext = "You are a careful assistant. Summarize the supplied document content faithfully. " +
		"Only use facts present in the content, keep the summary concise and do not invent details."
)
