package di

import (
	"archivist/internal/providers"
	"archivist/internal/services"
)

// archiveState exposes the served archive to the metrics gauges.
func archiveState(service services.ArchiveServiceInterface) providers.ArchiveStateReader {
	return service
}
