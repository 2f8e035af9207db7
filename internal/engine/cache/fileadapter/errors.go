package fileadapter

import (
	"fmt"

	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
)

// NewErrAbsPathConversionFailed 어댑터 초기화 시 디렉토리 경로를 절대 경로로 변환하는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrAbsPathConversionFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 초기화 실패: 절대 경로 변환 불가")
}

// NewErrDirectoryAccessFailed 어댑터 초기화 시 디렉토리 생성 또는 접근 권한 확인에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrDirectoryAccessFailed(err error, dir string) error {
	return apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("캐시 초기화 실패: 디렉토리 접근 불가 (%s)", dir))
}

// NewErrJSONMarshalFailed 캐시 항목을 JSON으로 직렬화하는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrJSONMarshalFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 항목 직렬화(JSON Marshal) 중 오류가 발생했습니다")
}

// NewErrCacheReadFailed 캐시 파일을 읽는 데 실패했을 때 반환하는 에러를 생성합니다.
func NewErrCacheReadFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 조회 실패: 저장된 캐시 파일 읽기 처리 중 오류가 발생했습니다")
}

// NewErrCacheDeleteFailed 캐시 파일 삭제에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrCacheDeleteFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 삭제 실패: 파일 제거 중 오류가 발생했습니다")
}

// NewErrDirectoryCreationFailed 캐시 저장 시 저장 디렉토리 생성에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrDirectoryCreationFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 저장 디렉토리 생성 중 오류가 발생했습니다")
}

// NewErrTempFileCreationFailed 캐시 저장 시 임시 파일 생성에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrTempFileCreationFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 임시 파일 생성 중 오류가 발생했습니다")
}

// NewErrFileWriteFailed 캐시 저장 시 파일 쓰기에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileWriteFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 파일 쓰기 중 오류가 발생했습니다")
}

// NewErrFileSyncFailed 캐시 저장 시 디스크 동기화에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileSyncFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 디스크 동기화 중 오류가 발생했습니다")
}

// NewErrFileCloseFailed 캐시 저장 시 파일 닫기에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileCloseFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 파일 닫기 중 오류가 발생했습니다")
}

// NewErrFileRenameFailed 캐시 저장 시 파일 이름 변경에 실패했을 때 반환하는 에러를 생성합니다.
func NewErrFileRenameFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 저장 실패: 파일 이름 변경 중 오류가 발생했습니다")
}
