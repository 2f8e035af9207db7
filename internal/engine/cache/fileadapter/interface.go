package fileadapter

import (
	"github.com/darkkaiser/pricesearch/internal/engine/cache"
)

// 컴파일 타임에 인터페이스 구현 여부를 검증합니다.
var _ cache.Adapter = (*Store)(nil)
