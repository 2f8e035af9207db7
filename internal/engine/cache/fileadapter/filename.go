package fileadapter

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

// filenameReplacer 파일명 생성 시 파일 시스템에서 문제를 일으킬 수 있는 특수문자를 안전한 문자로 치환합니다.
//
// [치환이 필요한 이유]
// 파일명에 특정 문자가 포함되면 다음과 같은 문제가 발생할 수 있습니다:
// - 파일 시스템 오류: 운영체제가 파일 생성/접근을 거부하거나 예상치 못한 동작을 유발
// - 보안 취약점: 경로 이탈(Path Traversal) 공격이나 명령어 주입(Command Injection) 위험
// - 크로스 플랫폼 호환성 문제: Windows/Linux/macOS 간 파일명 규칙 차이로 인한 오류
var filenameReplacer = strings.NewReplacer(
	"..", "--",
	"/", "-",
	"\\", "-",
	"|", "-",
	"<", "-",
	">", "-",
	":", "-",
	"\"", "-",
	"?", "-",
	"*", "-",
)

// generateFilename 캐시 키를 시스템에서 안전하게 사용할 수 있는 고유한 파일명으로 변환합니다.
//
// [파일명 생성 전략: 하이브리드 방식]
// 사람이 읽기 쉬우면서도 시스템적으로 완전히 고유한 파일명을 만들기 위해 두 가지 접근을 결합했습니다:
//  1. 가독성 - 캐시 키를 Kebab-Case로 정제해 파일 탐색기에서 식별 가능하게 합니다.
//  2. 고유성 - 원본 키의 64비트 해시값을 덧붙여 정제 후 충돌이나 대소문자 구분 없는
//     파일 시스템에서의 충돌, 길이 제한으로 인한 절삭 충돌을 방지합니다.
//
// [생성 패턴]
// "cache-{정제된키}-{16자리해시}.json"
func generateFilename(key string) string {
	name := sanitizeName(key)
	name = truncateByBytes(name, 80)

	hasher := fnv.New64a()
	_, _ = fmt.Fprintf(hasher, "%d:%s", len(key), key)
	hashSum := hasher.Sum64()

	return fmt.Sprintf("cache-%s-%016x.json", name, hashSum)
}

// sanitizeName 파일명으로 안전하게 사용할 수 있도록 문자열을 정제합니다.
func sanitizeName(s string) string {
	kebab := strcase.ToKebab(s)

	// 제어 문자(0x00-0x1F) 및 DEL(0x7F) 제거/치환
	kebab = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return '-'
		}
		return r
	}, kebab)

	return filenameReplacer.Replace(kebab)
}

// truncateByBytes 문자열을 UTF-8 바이트 길이 기준으로 안전하게 자릅니다.
func truncateByBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	var totalBytes int
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])

		if totalBytes+size > limit {
			return s[:totalBytes]
		}

		totalBytes += size
		i += size
	}

	return s[:totalBytes]
}
