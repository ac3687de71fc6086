package cart

// User-facing messages, as shown by the storefront's toasts.
const (
	msgOutOfStock    = "Quantidade solicitada fora de estoque"
	msgAddFailure    = "Erro na adição do produto"
	msgRemoveFailure = "Erro na remoção do produto"
	msgUpdateFailure = "Erro na alteração de quantidade do produto"
)
