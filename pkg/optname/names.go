package optname

const (
	CacheDir           = "cache-dir"
	DataURL            = "data-url"
	Decompress         = "decompress"
	DisableConnectors  = "disable-connectors"
	Force              = "force"
	LocalFile          = "local-file"
	LoggingLevel       = "log-level"
	MaxConcurrentFiles = "max-concurrent-files"
	Mode               = "mode"
	OutputConsumer     = "output"
	ProxyAuth          = "proxy-auth"
	ProxyHost          = "proxy-host"
	ProxyPassword      = "proxy-password"
	ProxyPort          = "proxy-port"
	ProxyProtocol      = "proxy-protocol"
	ProxyUser          = "proxy-user"
	Resolve            = "resolve"
	Timeout            = "timeout"
	UserAgent          = "user-agent"
	Verbose            = "verbose"
	VersionURL         = "version-url"
)
