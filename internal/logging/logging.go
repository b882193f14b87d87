package logging

import "go.uber.org/zap"

// New は環境に合わせたzapロガーを返す。prodはJSON、それ以外は開発用。
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
