package constant

// Module tags passed to logger.ILogger.
const (
	LogModuleClassifier  = "CLASSIFIER"
	LogModuleVectorStore = "VECTORSTORE"
	LogModuleTask        = "TASK"
	LogModuleDataset     = "DATASET"
	LogModuleHTTP        = "HTTP"
	LogModuleWatcher     = "WATCHER"
)
