package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は保持期間スイーパーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMocksaas はモックSaaS APIを独立プロセスとして起動することを示す。
	CommandMocksaas Command = "mocksaas"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "mocksaas":
		return CommandMocksaas
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
