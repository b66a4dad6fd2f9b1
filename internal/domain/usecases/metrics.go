package usecases

import (
	"time"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

type nopMetrics struct{}

func (nopMetrics) ChunkPersisted(string)                             {}
func (nopMetrics) ChunkFailed(string, string)                        {}
func (nopMetrics) QueryServed(entities.SelectionMode, time.Duration) {}
func (nopMetrics) QueryFailed(string)                                {}
