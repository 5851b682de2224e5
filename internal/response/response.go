// Package response holds the canned answers the IVR reads out for general
// inquiries before handing the caller to an engineer.
package response

import (
	"sort"
	"strings"
)

// Inquiry types with built-in answers.
const (
	KindGeneral = "general"
	KindPricing = "pricing"
	KindContact = "contact"
)

// MessageFallback is read out when no answer can be produced.
const MessageFallback = "죄송합니다. 일시적인 오류가 발생했습니다. 전담 엔지니어에게 연결해드리겠습니다."

var defaultAnswers = map[string]string{
	KindGeneral: `안녕하세요! Saltware는 클라우드 기술 전문 업체입니다.
저희는 AWS, Azure, GCP 등 다양한 클라우드 플랫폼에서 인프라 구축, 마이그레이션, 운영 관리 서비스를 제공합니다.

주요 서비스:
1. 클라우드 인프라 설계 및 구축
2. 레거시 시스템 클라우드 마이그레이션
3. DevOps 및 CI/CD 파이프라인 구축
4. 클라우드 보안 및 모니터링
5. 24/7 운영 관리 서비스

더 자세한 상담을 원하시면 전담 엔지니어와 연결해드리겠습니다.`,

	KindPricing: `Saltware의 서비스 요금은 프로젝트 규모와 요구사항에 따라 달라집니다.

기본 컨설팅: 월 300만원부터
인프라 구축: 프로젝트당 1,000만원부터
운영 관리: 월 500만원부터

정확한 견적은 무료 상담을 통해 제공해드립니다.`,

	KindContact: `Saltware 연락처 정보:
- 대표번호: 02-1234-5678
- 이메일: info@saltware.co.kr
- 주소: 서울시 강남구 테헤란로 123
- 웹사이트: www.saltware.co.kr

영업시간: 평일 09:00 ~ 18:00`,
}

// Catalog maps inquiry types to answer text. It is read-only after New.
type Catalog struct {
	answers map[string]string
}

// New builds a catalog from the built-in answers with overrides applied.
// Keys are matched case-insensitively; blank override texts are ignored.
func New(overrides map[string]string) *Catalog {
	answers := make(map[string]string, len(defaultAnswers)+len(overrides))
	for k, v := range defaultAnswers {
		answers[k] = v
	}
	for k, v := range overrides {
		k = normalizeKind(k)
		if k == "" || strings.TrimSpace(v) == "" {
			continue
		}
		answers[k] = strings.TrimSpace(v)
	}
	return &Catalog{answers: answers}
}

// Answer returns the text for kind and the kind actually used. Empty or
// unknown kinds get the general answer.
func (c *Catalog) Answer(kind string) (text, used string) {
	kind = normalizeKind(kind)
	if text, ok := c.answers[kind]; ok {
		return text, kind
	}
	if text, ok := c.answers[KindGeneral]; ok {
		return text, KindGeneral
	}
	return MessageFallback, KindGeneral
}

// Kinds lists the inquiry types with an answer, sorted.
func (c *Catalog) Kinds() []string {
	out := make([]string, 0, len(c.answers))
	for k := range c.answers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
