package exception

const IncorrectParamType = "1"
const IncorrectParamTypeMsg = "$param parameter should be $type"

const InvalidParameterValue = "2"
const InvalidParameterValueMsg = "Value '$value' is not allowed for parameter $param"

const InvalidLimitMsg = "Value '$value' is not allowed for parameter limit. Allowed values are in range 1:$maxLimit"

const BadRequestBody = "3"
const BadRequestBodyMsg = "Failed to read request body"

const InvalidExportRequest = "10"
const InvalidExportRequestMsg = "Export request is invalid: $error"

const InvalidExportFilters = "11"
const InvalidExportFiltersMsg = "Export filters are invalid: $error"

const AnonymizationUnavailable = "12"
const AnonymizationUnavailableMsg = "Anonymization is not available: anonymization salt is not configured"

const ExportJobNotFound = "20"
const ExportJobNotFoundMsg = "Export job with id $jobId not found"

const ExportJobStatusConflict = "21"
const ExportJobStatusConflictMsg = "Operation '$operation' is not allowed for export job $jobId in status $status"

const ExportPlanEmpty = "22"
const ExportPlanEmptyMsg = "None of the tables for export family $family and level $level exist in the source database"

const ExportFileNotFound = "30"
const ExportFileNotFoundMsg = "Export file with id $fileId not found"

const DownloadTokenInvalid = "31"
const DownloadTokenInvalidMsg = "Download token is invalid, expired or already used"

const ExportFileNotAvailable = "32"
const ExportFileNotAvailableMsg = "Export file $fileName is not available on disk"

const PurgeNotConfirmed = "40"
const PurgeNotConfirmedMsg = "Purge must be confirmed with confirm=yes"

const AuthFailed = "50"
const AuthFailedMsg = "Authentication failed"
